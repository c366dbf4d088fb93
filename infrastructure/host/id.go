package host

import (
	gonanoid "github.com/matoous/go-nanoid/v2"
	"go.uber.org/zap"
)

const idAlphabet = "0123456789ABCDEFGHIJKLMNOPQRSTUVWXYZabcdefghijklmnopqrstuvwxyz"

// NewID returns a random identifier for connections and for requests sent without an id
func NewID() string {
	id, err := gonanoid.Generate(idAlphabet, 16)
	if err != nil {
		zap.L().Error("Could not generate new ID", zap.Error(err))
	}
	return id
}
