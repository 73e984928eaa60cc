package unityyaml

import (
	"context"
	"errors"
	"fmt"
	"runtime/debug"
	"strconv"
	"strings"

	"eventtracker/internal/domain/entity"
	domainerrors "eventtracker/internal/domain/errors/domain"
	"eventtracker/internal/domain/service"
	"eventtracker/internal/domain/valueobject"
	"eventtracker/internal/port/outbound"
)

const (
	// Lines before this index hold the MonoBehaviour header fields.
	firstFieldLine = 8
	// Top-level fields are indented by two spaces, so their nested keys sit
	// at column four. Deeper groups belong to nested events.
	groupDepth = 4

	persistentCallsKey = "m_PersistentCalls"
	callsKey           = "m_Calls"
	targetKey          = "m_Target"
	methodNameKey      = "m_MethodName:"
	modeKey            = "m_Mode:"
	objectArgumentKey  = "m_ObjectArgument:"
	callStateKey       = "m_CallState:"
	typeNameKeySuffix  = "AssemblyTypeName"
)

// Engine resources such as default sprites and fonts live in these assets.
var builtinResourceGUIDs = map[string]bool{
	"0000000000000000e000000000000000": true,
	"0000000000000000f000000000000000": true,
}

// AssetResolver gives access to the objects of other assets so that
// references across assets can be resolved.
type AssetResolver interface {
	// Objects returns the blocks of the asset with the given guid. ok is false
	// when no such asset exists.
	Objects(ctx context.Context, guid string) (blocks []Block, ok bool)
}

// BlockResult is the outcome of extracting one object block.
type BlockResult struct {
	Calls   []*entity.PersistentCall
	Failure error
}

// ParseFailure describes an object block whose calls could not be read.
type ParseFailure struct {
	AssetPath string
	FileID    string
	// Line is the zero-based asset line the parser stopped at.
	Line int
	Err  error

	stack []byte
}

func (f *ParseFailure) Error() string {
	return fmt.Sprintf("parse %s object &%s at line %d: %v", f.AssetPath, f.FileID, f.Line, f.Err)
}

func (f *ParseFailure) Unwrap() error { return f.Err }

// StackTrace returns the goroutine stack captured when parsing panicked.
func (f *ParseFailure) StackTrace() []byte { return f.stack }

// Extractor recovers persistent calls from serialized assets.
type Extractor struct {
	validator *service.CompatibilityValidator
	assets    AssetResolver
}

// NewExtractor creates an extractor validating calls with validator and
// resolving cross-asset references with assets.
func NewExtractor(validator *service.CompatibilityValidator, assets AssetResolver) *Extractor {
	return &Extractor{validator: validator, assets: assets}
}

// Extract returns every persistent call stored in the asset. Objects are
// processed independently: a block that fails to parse contributes a failure
// and none of its calls.
func (e *Extractor) Extract(ctx context.Context, asset outbound.AssetSource, hasEvents func(scriptGUID string) bool) outbound.ExtractResult {
	blocks := ReadBlocks(asset.Content)
	local := make(map[string]Block, len(blocks))
	for _, b := range blocks {
		local[b.FileID()] = b
	}

	var result outbound.ExtractResult
	for _, b := range blocks {
		res := e.ExtractBlock(ctx, asset, b, local, hasEvents)
		if res.Failure != nil {
			result.Failures = append(result.Failures, res.Failure)
			continue
		}
		result.Calls = append(result.Calls, res.Calls...)
	}
	return result
}

// ExtractBlock reads the calls of a single object. local maps the file ids of
// the asset's objects to their blocks.
func (e *Extractor) ExtractBlock(
	ctx context.Context,
	asset outbound.AssetSource,
	block Block,
	local map[string]Block,
	hasEvents func(scriptGUID string) bool,
) (res BlockResult) {
	scriptGUID, ok := block.ScriptGUID()
	if !ok || !hasEvents(scriptGUID) {
		return BlockResult{}
	}

	p := &blockParser{
		ctx:          ctx,
		extractor:    e,
		asset:        asset,
		block:        block,
		lines:        block.Lines(),
		local:        local,
		scriptGUID:   scriptGUID,
		gameObjectID: block.GameObjectID(),
	}

	defer func() {
		if r := recover(); r != nil {
			failure := p.failure(fmt.Errorf("%w: %v", domainerrors.ErrMalformedBlock, r))
			failure.stack = debug.Stack()
			res = BlockResult{Failure: failure}
		}
	}()

	if err := p.run(); err != nil {
		return BlockResult{Failure: p.failure(err)}
	}
	return BlockResult{Calls: p.calls}
}

type parseState int

const (
	seekingEventGroup parseState = iota
	seekingCallsList
	readingEntry
	readingTargetReference
	readingReferenceContinuation
	readingMethod
	readingMode
	readingArgument
	skippingTrailer
	finished
)

var stateNames = [...]string{
	"seeking event group",
	"seeking calls list",
	"reading entry",
	"reading target reference",
	"reading reference continuation",
	"reading method",
	"reading mode",
	"reading argument",
	"skipping trailer",
	"finished",
}

func (s parseState) String() string {
	if int(s) < len(stateNames) {
		return stateNames[s]
	}
	return "state(" + strconv.Itoa(int(s)) + ")"
}

// entryDraft accumulates one m_Calls entry while its lines are read.
type entryDraft struct {
	target     valueobject.ObjectReference
	targetOK   bool
	argument   valueobject.ObjectReference
	methodName string
	methodLine int
	mode       valueobject.ArgumentMode
}

type blockParser struct {
	ctx          context.Context
	extractor    *Extractor
	asset        outbound.AssetSource
	block        Block
	lines        []string
	local        map[string]Block
	scriptGUID   string
	gameObjectID string

	i     int
	state parseState

	// current event group
	eventName   string
	eventArgs   []string
	eventArgsOK bool

	// current entry
	entry         entryDraft
	refLine       string
	refIsArgument bool
	calls         []*entity.PersistentCall
}

func (p *blockParser) run() error {
	p.i = firstFieldLine
	p.state = seekingEventGroup

	for p.state != finished {
		next, err := p.step()
		if err != nil {
			return fmt.Errorf("%s: %w", p.state, err)
		}
		p.state = next
	}
	return nil
}

func (p *blockParser) step() (parseState, error) {
	switch p.state {
	case seekingEventGroup:
		return p.seekEventGroup(), nil
	case seekingCallsList:
		return p.seekCallsList()
	case readingEntry:
		return p.readEntry(), nil
	case readingTargetReference:
		return p.readReferenceLine(false)
	case readingArgument:
		return p.readReferenceLine(true)
	case readingReferenceContinuation:
		return p.readReferenceContinuation()
	case readingMethod:
		return p.readMethod()
	case readingMode:
		return p.readMode()
	case skippingTrailer:
		return p.skipTrailer()
	default:
		return finished, fmt.Errorf("%w: unknown parser state %d", domainerrors.ErrMalformedBlock, p.state)
	}
}

func (p *blockParser) seekEventGroup() parseState {
	for ; p.i < len(p.lines)-1; p.i++ {
		line := p.lines[p.i]
		if len(line) <= groupDepth || line[groupDepth] == ' ' {
			continue
		}
		if !strings.HasPrefix(strings.TrimLeft(line, " "), persistentCallsKey) {
			continue
		}
		p.i++
		return seekingCallsList
	}
	return finished
}

func (p *blockParser) seekCallsList() (parseState, error) {
	line := p.lines[p.i]
	if !strings.HasPrefix(strings.TrimLeft(line, " "), callsKey) || strings.HasSuffix(line, "]") {
		p.i++
		return seekingEventGroup, nil
	}

	declared := strings.TrimLeft(strings.TrimSuffix(p.lines[p.i-2], ":"), " ")
	field, ok := p.extractor.validator.ResolveEvent(p.ctx, p.scriptGUID, declared)
	if !ok {
		// leftover calls of a removed event
		p.i++
		return seekingEventGroup, nil
	}

	p.eventName = field.Path
	p.eventArgs, p.eventArgsOK = p.extractor.validator.EventArgumentTypes(p.ctx, p.scriptGUID, field.Path)
	p.i++
	return readingEntry, nil
}

func (p *blockParser) readEntry() parseState {
	if p.i >= len(p.lines) || !strings.Contains(p.lines[p.i], targetKey) {
		return seekingEventGroup
	}
	p.entry = entryDraft{}
	return readingTargetReference
}

func (p *blockParser) readReferenceLine(isArgument bool) (parseState, error) {
	line, err := p.current()
	if err != nil {
		return finished, err
	}
	if isArgument && !strings.Contains(line, objectArgumentKey) {
		return finished, fmt.Errorf("%w: expected %s, got %q", domainerrors.ErrUnexpectedLine, objectArgumentKey, line)
	}
	p.refLine = line
	p.refIsArgument = isArgument
	p.i++
	return readingReferenceContinuation, nil
}

func (p *blockParser) readReferenceContinuation() (parseState, error) {
	line, err := p.current()
	if err != nil {
		return finished, err
	}

	var typeName string
	if key, value, ok := strings.Cut(strings.TrimLeft(line, " "), ":"); ok && strings.HasSuffix(key, typeNameKeySuffix) {
		p.i++
		typeName = strings.TrimSpace(value)
		for strings.HasSuffix(typeName, ",") && p.i < len(p.lines) && !isKeyLine(p.lines[p.i]) {
			typeName += " " + strings.TrimLeft(p.lines[p.i], " ")
			p.i++
		}
	}

	ref, ok, err := p.resolveReference(p.refLine, typeName)
	if err != nil {
		return finished, err
	}

	if p.refIsArgument {
		p.entry.argument = ref
		return skippingTrailer, nil
	}
	p.entry.target = ref
	p.entry.targetOK = ok
	return readingMethod, nil
}

func (p *blockParser) readMethod() (parseState, error) {
	line, err := p.current()
	if err != nil {
		return finished, err
	}
	idx := strings.Index(line, methodNameKey)
	if idx < 0 {
		return finished, fmt.Errorf("%w: expected %s, got %q", domainerrors.ErrUnexpectedLine, methodNameKey, line)
	}
	p.entry.methodName = strings.TrimSpace(line[idx+len(methodNameKey):])
	p.entry.methodLine = p.block.StartLine() + p.i
	p.i++
	return readingMode, nil
}

func (p *blockParser) readMode() (parseState, error) {
	line, err := p.current()
	if err != nil {
		return finished, err
	}
	idx := strings.Index(line, modeKey)
	if idx < 0 {
		return finished, fmt.Errorf("%w: expected %s, got %q", domainerrors.ErrUnexpectedLine, modeKey, line)
	}
	raw, err := strconv.Atoi(strings.TrimSpace(line[idx+len(modeKey):]))
	if err != nil {
		return finished, fmt.Errorf("%w: %q", domainerrors.ErrUnknownListenMode, line)
	}
	mode, err := valueobject.NewArgumentMode(raw)
	if err != nil {
		return finished, err
	}
	p.entry.mode = mode
	// skip the m_Arguments line
	p.i += 2
	return readingArgument, nil
}

func (p *blockParser) skipTrailer() (parseState, error) {
	for p.i < len(p.lines) && !strings.Contains(p.lines[p.i], callStateKey) {
		p.i++
	}
	if p.i >= len(p.lines) {
		return finished, fmt.Errorf("%w: missing %s", domainerrors.ErrMalformedBlock, callStateKey)
	}
	p.i++
	p.finishEntry()
	return readingEntry, nil
}

func (p *blockParser) finishEntry() {
	params := entity.PersistentCallParams{
		Address:         valueobject.NewAddress(p.asset.GUID, p.gameObjectID),
		Target:          p.entry.target,
		Argument:        p.entry.argument,
		MethodName:      p.entry.methodName,
		Mode:            p.entry.mode,
		EventName:       p.eventName,
		EventScriptGUID: p.scriptGUID,
		MethodLine:      p.entry.methodLine,
	}
	if p.entry.mode == valueobject.ArgumentModeEventDefined && p.eventArgsOK {
		params.ArgTypes = p.eventArgs
	}
	call := entity.NewPersistentCall(params)
	state := p.extractor.validator.DeriveState(p.ctx, p.entry.targetOK, call)
	p.calls = append(p.calls, call.WithState(state))
}

// resolveReference reads a "{fileID: N}" or "{fileID: N, guid: G, type: T}"
// reference. ok is false when the referenced object does not exist.
func (p *blockParser) resolveReference(line, typeName string) (valueobject.ObjectReference, bool, error) {
	if idx := strings.Index(line, guidMarker); idx >= 0 {
		guid := line[idx+len(guidMarker):]
		if end := strings.IndexAny(guid, ",}"); end >= 0 {
			guid = guid[:end]
		}
		ref, ok := p.extractor.resolveGlobal(p.ctx, strings.TrimSpace(guid), typeName)
		return ref, ok, nil
	}

	const fileIDMarker = "fileID: "
	idx := strings.Index(line, fileIDMarker)
	if idx < 0 {
		return valueobject.ObjectReference{}, false, fmt.Errorf("%w: %q", domainerrors.ErrMalformedReference, line)
	}
	fileID := strings.TrimSpace(strings.TrimSuffix(strings.TrimSpace(line[idx+len(fileIDMarker):]), "}"))

	target, ok := p.local[fileID]
	if !ok {
		return valueobject.ObjectReference{}, false, nil
	}
	scriptGUID, _ := target.ScriptGUID()
	return valueobject.NewLocalReference(fileID, scriptGUID, typeName), true, nil
}

func (e *Extractor) resolveGlobal(ctx context.Context, guid, typeName string) (valueobject.ObjectReference, bool) {
	if builtinResourceGUIDs[guid] {
		return valueobject.NewGlobalReference(guid, "", typeName), true
	}
	if e.assets == nil {
		return valueobject.ObjectReference{}, false
	}
	blocks, ok := e.assets.Objects(ctx, guid)
	if !ok {
		return valueobject.ObjectReference{}, false
	}
	if len(blocks) == 1 {
		if scriptGUID, ok := blocks[0].ScriptGUID(); ok {
			return valueobject.NewGlobalReference(guid, scriptGUID, typeName), true
		}
	}
	return valueobject.NewGlobalReference(guid, "", typeName), true
}

func (p *blockParser) current() (string, error) {
	if p.i >= len(p.lines) {
		return "", fmt.Errorf("%w: unexpected end of object", domainerrors.ErrMalformedBlock)
	}
	return p.lines[p.i], nil
}

func (p *blockParser) failure(err error) *ParseFailure {
	return &ParseFailure{
		AssetPath: p.asset.Path,
		FileID:    p.block.FileID(),
		Line:      p.block.StartLine() + p.i,
		Err:       err,
	}
}

// isKeyLine reports whether a line starts a new "m_" mapping key.
func isKeyLine(line string) bool {
	trimmed := strings.TrimLeft(line, " -")
	return strings.HasPrefix(trimmed, "m_") && strings.Contains(trimmed, ":")
}

// IsParseFailure reports whether err came from a block that failed to parse.
func IsParseFailure(err error) bool {
	var pf *ParseFailure
	return errors.As(err, &pf)
}
