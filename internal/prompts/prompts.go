package prompts

import (
	"embed"
	"errors"
	"fmt"
	"io/fs"
	"os"
	"strings"
)

//go:embed templates/*.txt
var embedded embed.FS

// Role identifies a stage whose system prompt is loaded from a template file.
type Role string

const (
	RoleSummary    Role = "summary"
	RoleBlogWriter Role = "blog_writer"
	RoleCritic     Role = "critic"
)

// Placeholder is replaced by the stage input in a template.
const Placeholder = "{input}"

// ErrUnknownRole is returned when loading a template for an unregistered role.
var ErrUnknownRole = errors.New("unknown prompt role")

// Roles returns every role in pipeline order.
func Roles() []Role {
	return []Role{RoleSummary, RoleBlogWriter, RoleCritic}
}

// FileName returns the template file name for role.
func FileName(role Role) string {
	return string(role) + "_agent_prompt.txt"
}

// Loader reads system prompt templates. Templates are read on every call so
// edits to an on-disk prompts directory are picked up without a restart.
type Loader struct {
	fsys fs.FS
}

// NewLoader returns a loader reading from dir, or from the templates built into
// the binary when dir is empty.
func NewLoader(dir string) *Loader {
	if dir == "" {
		sub, err := fs.Sub(embedded, "templates")
		if err != nil {
			// the embed pattern guarantees the directory exists
			panic(err)
		}
		return &Loader{fsys: sub}
	}
	return &Loader{fsys: os.DirFS(dir)}
}

// NewLoaderFS returns a loader reading templates from fsys.
func NewLoaderFS(fsys fs.FS) *Loader {
	return &Loader{fsys: fsys}
}

// Load returns the system prompt template for role.
func (l *Loader) Load(role Role) (string, error) {
	if !known(role) {
		return "", fmt.Errorf("%w: %q", ErrUnknownRole, role)
	}

	data, err := fs.ReadFile(l.fsys, FileName(role))
	if err != nil {
		return "", fmt.Errorf("loading %s prompt: %w", role, err)
	}
	return string(data), nil
}

// Render substitutes input for every placeholder in template.
func Render(template, input string) string {
	return strings.ReplaceAll(template, Placeholder, input)
}

func known(role Role) bool {
	for _, r := range Roles() {
		if r == role {
			return true
		}
	}
	return false
}
