// Package unityyaml reads the engine's text serialization format and recovers
// the persistent calls stored in it.
package unityyaml

import (
	"strings"
)

const (
	gameObjectLine = 6
	scriptLine     = 9
	scriptPrefix   = "  m_Script"
	guidMarker     = "guid: "
)

// Block is one serialized object: the "--- !u!<class> &<fileID>" header, the
// type line and every following indented line.
type Block struct {
	fileID    string
	classID   string
	startLine int
	lines     []string
}

// ReadBlocks splits asset text into object blocks. Line endings may be LF or
// CRLF; preamble lines before the first header are ignored. A block runs to
// the next header, so empty lines inside multi-line quoted scalars stay in
// it; empty lines trailing a block are dropped.
func ReadBlocks(content []byte) []Block {
	lines := SplitLines(content)

	var blocks []Block
	for i := 0; i < len(lines); i++ {
		if !isHeader(lines[i]) {
			continue
		}
		start := i
		// header and type line always belong to the block
		i++
		for i+1 < len(lines) && !isHeader(lines[i+1]) {
			i++
		}
		end := min(i+1, len(lines))
		for end-start > 2 && lines[end-1] == "" {
			end--
		}
		blocks = append(blocks, newBlock(lines[start:end], start))
	}
	return blocks
}

func isHeader(line string) bool {
	return strings.HasPrefix(line, "-")
}

// SplitLines splits text into physical lines with any trailing '\r' removed.
func SplitLines(content []byte) []string {
	text := string(content)
	text = strings.TrimSuffix(text, "\n")
	if text == "" {
		return nil
	}
	lines := strings.Split(text, "\n")
	for i, l := range lines {
		lines[i] = strings.TrimSuffix(l, "\r")
	}
	return lines
}

func newBlock(lines []string, startLine int) Block {
	header := lines[0]
	b := Block{startLine: startLine, lines: lines}

	if i := strings.Index(header, "&"); i >= 0 {
		id := header[i+1:]
		if sp := strings.IndexByte(id, ' '); sp >= 0 {
			id = id[:sp]
		}
		b.fileID = id
	}
	if i := strings.Index(header, "!u!"); i >= 0 {
		id := header[i+3:]
		if sp := strings.IndexByte(id, ' '); sp >= 0 {
			id = id[:sp]
		}
		b.classID = id
	}
	return b
}

// FileID returns the object's local identifier.
func (b Block) FileID() string { return b.fileID }

// ClassID returns the engine class id from the header, "114" for MonoBehaviour.
func (b Block) ClassID() string { return b.classID }

// StartLine returns the zero-based index of the header line in the asset.
func (b Block) StartLine() int { return b.startLine }

// Lines returns the block's lines, header included.
func (b Block) Lines() []string { return b.lines }

// IsStripped reports whether the header carries the "stripped" suffix of
// prefab instance placeholders.
func (b Block) IsStripped() bool {
	return strings.HasSuffix(b.lines[0], " stripped")
}

// IsGameObject reports whether the block is a GameObject.
func (b Block) IsGameObject() bool {
	return len(b.lines) > 1 && strings.HasPrefix(b.lines[1], "GameObject")
}

// IsMonoBehaviour reports whether the block is a script instance with the
// usual layout. Script objects with other layouts, such as some engine
// package assets, are not treated as scripts.
func (b Block) IsMonoBehaviour() bool {
	_, ok := b.ScriptGUID()
	return ok
}

// ScriptGUID returns the guid of the script attached to a MonoBehaviour block.
func (b Block) ScriptGUID() (string, bool) {
	if len(b.lines) <= scriptLine || !strings.HasPrefix(b.lines[1], "Mono") {
		return "", false
	}
	line := b.lines[scriptLine]
	if !strings.HasPrefix(line, scriptPrefix) {
		return "", false
	}
	i := strings.Index(line, guidMarker)
	if i < 0 {
		return "", false
	}
	guid := line[i+len(guidMarker):]
	if end := strings.IndexByte(guid, ','); end >= 0 {
		guid = guid[:end]
	}
	return guid, guid != ""
}

// GameObjectID returns the id of the GameObject a MonoBehaviour is attached
// to, taken from its m_GameObject line.
func (b Block) GameObjectID() string {
	if len(b.lines) <= gameObjectLine {
		return ""
	}
	line := b.lines[gameObjectLine]
	id := line[strings.LastIndexByte(line, ' ')+1:]
	return strings.TrimRight(id, "}")
}

// String returns the block text.
func (b Block) String() string {
	return strings.Join(b.lines, "\n")
}
