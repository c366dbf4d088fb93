package prompt

// Static answers every prompt without user interaction.
// Inputs resolve to their defaults and confirmations to Answer.
type Static struct {
	Answer bool
}

func (s Static) Input(message string, defaultValue string) (string, error) {
	return defaultValue, nil
}

func (s Static) Confirm(message string, defaultValue bool) (bool, error) {
	return s.Answer, nil
}

func (s Static) Path(message string, defaultValue string) (string, error) {
	return defaultValue, nil
}

func (s Static) MultiPath(message string, defaultValue string) ([]string, error) {
	if defaultValue == "" {
		return nil, nil
	}
	return []string{defaultValue}, nil
}

var _ Prompter = Static{}
