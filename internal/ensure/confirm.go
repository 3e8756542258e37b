package ensure

import (
	"os"
	"strings"

	"github.com/AlecAivazis/survey/v2"
	"github.com/mattn/go-isatty"
)

// Confirmer answers yes/no questions
type Confirmer interface {
	Confirm(question string) (bool, error)
}

// StaticConfirmer always gives the same answer. Used for --force and tests.
type StaticConfirmer bool

// Confirm returns the fixed answer
func (s StaticConfirmer) Confirm(string) (bool, error) {
	return bool(s), nil
}

// NonInteractive declines every question
var NonInteractive Confirmer = StaticConfirmer(false)

// SurveyConfirmer asks on the terminal
type SurveyConfirmer struct{}

// Confirm shows a y/N prompt, defaulting to no
func (SurveyConfirmer) Confirm(question string) (bool, error) {
	answer := false
	if err := survey.AskOne(&survey.Confirm{Message: question, Default: false}, &answer); err != nil {
		return false, err
	}
	return answer, nil
}

// IsInteractive reports whether stdin and stdout are attached to a terminal
func IsInteractive() bool {
	return isTerminal(os.Stdin.Fd()) && isTerminal(os.Stdout.Fd())
}

func isTerminal(fd uintptr) bool {
	return isatty.IsTerminal(fd) || isatty.IsCygwinTerminal(fd)
}

// ForTerminal picks the confirmer for the current process: force answers yes,
// a terminal gets a prompt, anything else declines.
func ForTerminal(force bool) Confirmer {
	if force {
		return StaticConfirmer(true)
	}
	if IsInteractive() {
		return SurveyConfirmer{}
	}
	return NonInteractive
}

// Prompter asks for free-form values
type Prompter interface {
	Input(message, defaultValue string) (string, error)
	Password(message string) (string, error)
}

// SurveyPrompter reads values from the terminal
type SurveyPrompter struct{}

// Input asks for a value, returning defaultValue on an empty answer
func (SurveyPrompter) Input(message, defaultValue string) (string, error) {
	var answer string
	if err := survey.AskOne(&survey.Input{Message: message, Default: defaultValue}, &answer); err != nil {
		return "", err
	}
	return strings.TrimSpace(answer), nil
}

// Password asks for a secret without echo
func (SurveyPrompter) Password(message string) (string, error) {
	var answer string
	if err := survey.AskOne(&survey.Password{Message: message}, &answer); err != nil {
		return "", err
	}
	return answer, nil
}

// DefaultsPrompter answers every question with its default
type DefaultsPrompter struct{}

// Input returns defaultValue
func (DefaultsPrompter) Input(_, defaultValue string) (string, error) {
	return defaultValue, nil
}

// Password returns an empty string
func (DefaultsPrompter) Password(string) (string, error) {
	return "", nil
}
