//go:build integration

package steps

import (
	"context"
	"fmt"
	"io"
	"os"
	"path/filepath"

	"flacdesk/cmd"
	"flacdesk/infrastructure/config"
	"flacdesk/infrastructure/host"

	"github.com/cucumber/godog"
	gonanoid "github.com/matoous/go-nanoid/v2"
)

type fileExistsContext struct {
	tempDir  string
	path     string
	runtime  *host.Runtime
	outcomes []outcome
}

// outcome is one tagged result of file_exists
type outcome struct {
	ok      bool
	message string
}

var SharedFileExistsContext = &fileExistsContext{}

func InitializeFileExistsScenario(ctx *godog.ScenarioContext) {
	testCtx := SharedFileExistsContext

	ctx.Before(func(c context.Context, sc *godog.Scenario) (context.Context, error) {
		tempDir, err := os.MkdirTemp("", "file-exists-test-*")
		if err != nil {
			return c, err
		}
		testCtx.tempDir = tempDir
		testCtx.path = ""
		testCtx.outcomes = nil

		deps, err := cmd.NewDependencies(config.Default(), NewMockPrompter(nil, nil), io.Discard)
		if err != nil {
			return c, err
		}
		testCtx.runtime, err = deps.Builder().Build()
		return c, err
	})

	ctx.After(func(c context.Context, sc *godog.Scenario, err error) (context.Context, error) {
		if testCtx.tempDir != "" {
			os.RemoveAll(testCtx.tempDir)
		}
		return c, nil
	})

	ctx.Step(`^a temporary file exists$`, testCtx.aTemporaryFileExists)
	ctx.Step(`^a temporary directory exists$`, testCtx.aTemporaryDirectoryExists)
	ctx.Step(`^a randomly named path that does not exist$`, testCtx.aRandomlyNamedPathThatDoesNotExist)
	ctx.Step(`^the empty path$`, testCtx.theEmptyPath)
	ctx.Step(`^I check whether the path exists$`, testCtx.iCheckWhetherThePathExists)
	ctx.Step(`^I check whether the path exists (\d+) times$`, testCtx.iCheckWhetherThePathExistsNTimes)
	ctx.Step(`^the file is created$`, testCtx.theFileIsCreated)
	ctx.Step(`^the file is deleted$`, testCtx.theFileIsDeleted)
	ctx.Step(`^the check should fail with "([^"]*)"$`, testCtx.theCheckShouldFailWith)
	ctx.Step(`^the check should succeed with "([^"]*)"$`, testCtx.theCheckShouldSucceedWith)
	ctx.Step(`^every check should return the same outcome$`, testCtx.everyCheckShouldReturnTheSameOutcome)
}

func (f *fileExistsContext) aTemporaryFileExists() error {
	f.path = filepath.Join(f.tempDir, "existing.flac")
	return os.WriteFile(f.path, []byte("flac"), 0644)
}

func (f *fileExistsContext) aTemporaryDirectoryExists() error {
	f.path = filepath.Join(f.tempDir, "albums")
	return os.Mkdir(f.path, 0755)
}

func (f *fileExistsContext) aRandomlyNamedPathThatDoesNotExist() error {
	name, err := gonanoid.New()
	if err != nil {
		return err
	}
	f.path = filepath.Join(f.tempDir, name)
	return nil
}

func (f *fileExistsContext) theEmptyPath() error {
	f.path = ""
	return nil
}

func (f *fileExistsContext) iCheckWhetherThePathExists() error {
	payload, err := f.runtime.Invoke(context.Background(), cmd.FileExistsCommand, map[string]string{"value": f.path}, nil)
	if err != nil {
		f.outcomes = append(f.outcomes, outcome{ok: false, message: err.Error()})
		return nil
	}
	msg, ok := payload.(string)
	if !ok {
		return fmt.Errorf("expected string payload, got %T", payload)
	}
	f.outcomes = append(f.outcomes, outcome{ok: true, message: msg})
	return nil
}

func (f *fileExistsContext) iCheckWhetherThePathExistsNTimes(n int) error {
	for i := 0; i < n; i++ {
		if err := f.iCheckWhetherThePathExists(); err != nil {
			return err
		}
	}
	return nil
}

func (f *fileExistsContext) theFileIsCreated() error {
	return os.WriteFile(f.path, []byte("flac"), 0644)
}

func (f *fileExistsContext) theFileIsDeleted() error {
	return os.Remove(f.path)
}

func (f *fileExistsContext) last() (outcome, error) {
	if len(f.outcomes) == 0 {
		return outcome{}, fmt.Errorf("no check has been run")
	}
	return f.outcomes[len(f.outcomes)-1], nil
}

func (f *fileExistsContext) theCheckShouldFailWith(expected string) error {
	got, err := f.last()
	if err != nil {
		return err
	}
	if got.ok || got.message != expected {
		return fmt.Errorf("expected failure %q, got ok=%v message=%q", expected, got.ok, got.message)
	}
	return nil
}

func (f *fileExistsContext) theCheckShouldSucceedWith(expected string) error {
	got, err := f.last()
	if err != nil {
		return err
	}
	if !got.ok || got.message != expected {
		return fmt.Errorf("expected success %q, got ok=%v message=%q", expected, got.ok, got.message)
	}
	return nil
}

func (f *fileExistsContext) everyCheckShouldReturnTheSameOutcome() error {
	for i, o := range f.outcomes[1:] {
		if o != f.outcomes[0] {
			return fmt.Errorf("check %d returned %+v, first returned %+v", i+2, o, f.outcomes[0])
		}
	}
	return nil
}
