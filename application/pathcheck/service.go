package pathcheck

import (
	"flacdesk/domain/pathcheck"

	"go.uber.org/zap"
)

// Service answers the file_exists command
type Service struct {
	checker pathcheck.FileChecker
}

// NewService creates a new path check service
func NewService(checker pathcheck.FileChecker) *Service {
	return &Service{checker: checker}
}

// CheckFileExists reports an existing path through the error channel.
// A failed stat is treated the same as a missing path.
func (s *Service) CheckFileExists(path string) (string, error) {
	state, err := s.checker.Probe(path)
	switch state {
	case pathcheck.Present:
		return "", pathcheck.ErrFileExists
	case pathcheck.Unknown:
		zap.L().Debug("existence check failed, reporting as absent",
			zap.String("path", path), zap.Error(err))
	}
	return pathcheck.MessageAbsent, nil
}

// Probe exposes the three-way result for callers that need to tell errors apart
func (s *Service) Probe(path string) (pathcheck.State, error) {
	return s.checker.Probe(path)
}
