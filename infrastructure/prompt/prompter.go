package prompt

import (
	"errors"
	"path/filepath"

	"github.com/AlecAivazis/survey/v2"
	"github.com/AlecAivazis/survey/v2/terminal"
)

// ErrCancelled is returned when the user aborts a prompt
var ErrCancelled = errors.New("prompt cancelled")

// Prompter interface for interactive prompts (allows mocking in tests)
type Prompter interface {
	Input(message string, defaultValue string) (string, error)
	Confirm(message string, defaultValue bool) (bool, error)
	Path(message string, defaultValue string) (string, error)
	MultiPath(message string, defaultValue string) ([]string, error)
}

// SurveyPrompter implements Prompter using the survey library
type SurveyPrompter struct {
	opts []survey.AskOpt
}

// NewSurveyPrompter creates a prompter reading from the controlling terminal
func NewSurveyPrompter(opts ...survey.AskOpt) *SurveyPrompter {
	return &SurveyPrompter{opts: opts}
}

func (p *SurveyPrompter) Input(message string, defaultValue string) (string, error) {
	result := ""
	prompt := &survey.Input{
		Message: message,
		Default: defaultValue,
	}
	if err := survey.AskOne(prompt, &result, p.opts...); err != nil {
		return "", translate(err)
	}
	return result, nil
}

func (p *SurveyPrompter) Confirm(message string, defaultValue bool) (bool, error) {
	result := defaultValue
	prompt := &survey.Confirm{
		Message: message,
		Default: defaultValue,
	}
	if err := survey.AskOne(prompt, &result, p.opts...); err != nil {
		return false, translate(err)
	}
	return result, nil
}

// Path asks for a filesystem path with tab completion
func (p *SurveyPrompter) Path(message string, defaultValue string) (string, error) {
	result := ""
	prompt := &survey.Input{
		Message: message,
		Default: defaultValue,
		Suggest: suggestPaths,
	}
	if err := survey.AskOne(prompt, &result, p.opts...); err != nil {
		return "", translate(err)
	}
	return result, nil
}

// MultiPath asks for paths one at a time until an empty answer
func (p *SurveyPrompter) MultiPath(message string, defaultValue string) ([]string, error) {
	var paths []string
	for {
		msg := message
		if len(paths) > 0 {
			msg = "Another path (empty to finish):"
			defaultValue = ""
		}
		path, err := p.Path(msg, defaultValue)
		if err != nil {
			return nil, err
		}
		if path == "" {
			return paths, nil
		}
		paths = append(paths, path)
	}
}

func suggestPaths(toComplete string) []string {
	files, _ := filepath.Glob(toComplete + "*")
	return files
}

func translate(err error) error {
	if errors.Is(err, terminal.InterruptErr) {
		return ErrCancelled
	}
	return err
}

// DefaultPrompter is the prompter used in production
var DefaultPrompter Prompter = NewSurveyPrompter()
