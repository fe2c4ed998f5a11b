package core

import (
	"bytes"
	"encoding/json"
	"path"
	"strings"
	"sync"
	texttmpl "text/template"

	"github.com/pkg/errors"

	appfs "github.com/trezcool/edupilot/fs"
)

const promptTemplatesDir = "templates/prompts"

var (
	prompts     *texttmpl.Template
	promptsErr  error
	promptsInit sync.Once

	promptFuncs = texttmpl.FuncMap{
		"json": func(v interface{}) (string, error) {
			b, err := json.Marshal(v)
			return string(b), err
		},
		"jsonIndent": func(v interface{}) (string, error) {
			b, err := json.MarshalIndent(v, "", "  ")
			return string(b), err
		},
		"join": strings.Join,
	}
)

// RenderPrompt executes the embedded prompt template `name` (without ext) with data.
func RenderPrompt(name string, data interface{}) (string, error) {
	promptsInit.Do(func() {
		prompts, promptsErr = texttmpl.New("prompts").
			Funcs(promptFuncs).
			Option("missingkey=error").
			ParseFS(appfs.FS, path.Join(promptTemplatesDir, "*.tmpl"))
	})
	if promptsErr != nil {
		return "", errors.Wrap(promptsErr, "parsing prompt templates")
	}

	var buff bytes.Buffer
	if err := prompts.ExecuteTemplate(&buff, name+".tmpl", data); err != nil {
		return "", errors.Wrapf(err, "rendering prompt %s", name)
	}
	return strings.TrimSpace(buff.String()), nil
}
