package unityproject

import (
	"encoding/json"
	"os"
	"path"
	"path/filepath"
	"strings"
	"sync"
)

const (
	defaultAssembly         = "Assembly-CSharp"
	editorAssembly          = "Assembly-CSharp-Editor"
	firstPassAssembly       = "Assembly-CSharp-firstpass"
	editorFirstPassAssembly = "Assembly-CSharp-Editor-firstpass"
)

// Folders compiled before the main assembly.
var firstPassFolders = []string{"Assets/Plugins/", "Assets/Standard Assets/", "Assets/Pro Standard Assets/"}

// assemblyResolver names the assembly a script compiles into: the nearest
// assembly definition above it, or one of the predefined assemblies.
type assemblyResolver struct {
	root string

	mu    sync.Mutex
	byDir map[string]string
}

func newAssemblyResolver(root string) *assemblyResolver {
	return &assemblyResolver{root: root, byDir: map[string]string{}}
}

type asmdef struct {
	Name string `json:"name"`
}

func (r *assemblyResolver) assemblyFor(scriptPath string) string {
	for dir := path.Dir(scriptPath); dir != "." && dir != "/" && dir != ""; dir = path.Dir(dir) {
		if name := r.definitionIn(dir); name != "" {
			return name
		}
		if dir == assetsDir {
			break
		}
	}

	editor := strings.Contains("/"+scriptPath, "/Editor/")
	firstPass := false
	for _, f := range firstPassFolders {
		if strings.HasPrefix(scriptPath, f) {
			firstPass = true
		}
	}
	switch {
	case editor && firstPass:
		return editorFirstPassAssembly
	case editor:
		return editorAssembly
	case firstPass:
		return firstPassAssembly
	default:
		return defaultAssembly
	}
}

// definitionIn returns the assembly defined in dir, or "".
func (r *assemblyResolver) definitionIn(dir string) string {
	r.mu.Lock()
	defer r.mu.Unlock()
	if name, ok := r.byDir[dir]; ok {
		return name
	}

	name := ""
	matches, _ := filepath.Glob(filepath.Join(r.root, filepath.FromSlash(dir), "*.asmdef"))
	if len(matches) > 0 {
		if data, err := os.ReadFile(matches[0]); err == nil {
			var def asmdef
			if json.Unmarshal(data, &def) == nil {
				name = def.Name
			}
		}
	}
	r.byDir[dir] = name
	return name
}
