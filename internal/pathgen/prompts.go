package pathgen

import (
	"embed"
	"strings"
	"text/template"

	"github.com/hitchpath/hitchpath/internal/user"
)

//go:embed prompts/*.tmpl
var promptFS embed.FS

// Parsed once; execution is safe for concurrent use.
var prompts = template.Must(template.ParseFS(promptFS, "prompts/*.tmpl"))

type topicPrompt struct {
	Topic   string
	Details string
}

func renderPreferences(p user.Preferences) (string, error) {
	return render("preferences.tmpl", p)
}

func renderTopic(topic, details string) (string, error) {
	return render("topic.tmpl", topicPrompt{Topic: topic, Details: details})
}

func render(name string, data any) (string, error) {
	var b strings.Builder
	if err := prompts.ExecuteTemplate(&b, name, data); err != nil {
		return "", err
	}
	return b.String(), nil
}
