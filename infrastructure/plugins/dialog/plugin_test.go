package dialog

import (
	"bytes"
	"context"
	"sync"
	"sync/atomic"
	"time"

	"flacdesk/infrastructure/filesystem"
	"flacdesk/infrastructure/host"
	"flacdesk/infrastructure/prompt"

	. "github.com/onsi/ginkgo/v2"
	. "github.com/onsi/gomega"
	"github.com/spf13/afero"
)

// scriptedPrompter replays queued answers and records the questions asked
type scriptedPrompter struct {
	paths    []string
	confirms []bool
	err      error
	asked    []string
}

func (s *scriptedPrompter) Input(message, defaultValue string) (string, error) {
	return s.Path(message, defaultValue)
}

func (s *scriptedPrompter) Confirm(message string, defaultValue bool) (bool, error) {
	s.asked = append(s.asked, message)
	if s.err != nil {
		return false, s.err
	}
	if len(s.confirms) == 0 {
		return defaultValue, nil
	}
	answer := s.confirms[0]
	s.confirms = s.confirms[1:]
	return answer, nil
}

func (s *scriptedPrompter) Path(message, defaultValue string) (string, error) {
	s.asked = append(s.asked, message)
	if s.err != nil {
		return "", s.err
	}
	if len(s.paths) == 0 {
		return defaultValue, nil
	}
	answer := s.paths[0]
	s.paths = s.paths[1:]
	return answer, nil
}

func (s *scriptedPrompter) MultiPath(message, defaultValue string) ([]string, error) {
	if s.err != nil {
		return nil, s.err
	}
	out := s.paths
	s.paths = nil
	return out, nil
}

// overlapPrompter records how many prompts were on screen at once
type overlapPrompter struct {
	active  atomic.Int32
	maxSeen atomic.Int32
}

func (o *overlapPrompter) enter() {
	n := o.active.Add(1)
	for {
		seen := o.maxSeen.Load()
		if n <= seen || o.maxSeen.CompareAndSwap(seen, n) {
			break
		}
	}
	time.Sleep(20 * time.Millisecond)
	o.active.Add(-1)
}

func (o *overlapPrompter) Input(message, defaultValue string) (string, error) {
	o.enter()
	return defaultValue, nil
}

func (o *overlapPrompter) Confirm(message string, defaultValue bool) (bool, error) {
	o.enter()
	return defaultValue, nil
}

func (o *overlapPrompter) Path(message, defaultValue string) (string, error) {
	o.enter()
	return defaultValue, nil
}

func (o *overlapPrompter) MultiPath(message, defaultValue string) ([]string, error) {
	o.enter()
	return []string{defaultValue}, nil
}

var _ = Describe("Plugin", func() {
	var (
		mem      afero.Fs
		prompter *scriptedPrompter
		out      *bytes.Buffer
		p        *Plugin
	)

	flacOnly := []Filter{{Name: "FLAC", Extensions: []string{"flac"}}}

	BeforeEach(func() {
		mem = afero.NewMemMapFs()
		Expect(afero.WriteFile(mem, "/music/a.flac", []byte("a"), 0644)).To(Succeed())
		Expect(afero.WriteFile(mem, "/music/cover.jpg", []byte("c"), 0644)).To(Succeed())
		Expect(mem.MkdirAll("/music/albums", 0755)).To(Succeed())

		prompter = &scriptedPrompter{}
		out = &bytes.Buffer{}
		p = New(prompter, filesystem.NewChecker(filesystem.WithFs(mem)), WithOutput(out))
	})

	It("exposes the dialog commands", func() {
		Expect(p.Commands()).To(HaveKey("message"))
		Expect(p.Commands()).To(HaveKey("ask"))
		Expect(p.Commands()).To(HaveKey("confirm"))
		Expect(p.Commands()).To(HaveKey("open"))
		Expect(p.Commands()).To(HaveKey("save"))
	})

	It("inspects paths on the checker's filesystem", func() {
		Expect(p.fs).To(BeIdenticalTo(mem))

		other := afero.NewMemMapFs()
		withOwn := New(prompter, filesystem.NewChecker(filesystem.WithFs(mem)), WithFs(other))
		Expect(withOwn.fs).To(BeIdenticalTo(other))
	})

	It("shows one dialog at a time", func() {
		modal := &overlapPrompter{}
		mp := New(modal, filesystem.NewChecker(filesystem.WithFs(mem)), WithOutput(out))

		var wg sync.WaitGroup
		for i := 0; i < 4; i++ {
			wg.Add(2)
			go func() {
				defer wg.Done()
				_, _ = mp.Ask(AskRequest{Message: "Continue?"})
			}()
			go func() {
				defer wg.Done()
				_, _ = mp.Save(SaveRequest{DefaultPath: "/music/new.flac"})
			}()
		}
		wg.Wait()

		Expect(modal.maxSeen.Load()).To(Equal(int32(1)))
	})

	Describe("Message", func() {
		It("prints the title and message", func() {
			Expect(p.Message(MessageRequest{Title: "Download", Message: "done", Kind: "info"})).To(Succeed())
			Expect(out.String()).To(ContainSubstring("Download"))
			Expect(out.String()).To(ContainSubstring("done"))
		})
	})

	Describe("Ask", func() {
		It("returns the user's answer and shows custom labels", func() {
			prompter.confirms = []bool{false}
			ok, err := p.Ask(AskRequest{Message: "Delete?", OkLabel: "Yes"})
			Expect(err).ToNot(HaveOccurred())
			Expect(ok).To(BeFalse())
			Expect(prompter.asked[0]).To(Equal("Delete? [Yes/Cancel]"))
		})

		It("treats a cancelled prompt as a refusal", func() {
			prompter.err = prompt.ErrCancelled
			ok, err := p.Ask(AskRequest{Message: "Delete?"})
			Expect(err).ToNot(HaveOccurred())
			Expect(ok).To(BeFalse())
		})
	})

	Describe("Open", func() {
		It("returns an existing file matching the filters", func() {
			prompter.paths = []string{"/music/a.flac"}
			paths, err := p.Open(OpenRequest{Filters: flacOnly})
			Expect(err).ToNot(HaveOccurred())
			Expect(paths).To(Equal([]string{"/music/a.flac"}))
		})

		It("rejects missing files", func() {
			prompter.paths = []string{"/music/none.flac"}
			_, err := p.Open(OpenRequest{})
			Expect(err).To(MatchError("/music/none.flac does not exist"))
		})

		It("rejects files outside the filters", func() {
			prompter.paths = []string{"/music/cover.jpg"}
			_, err := p.Open(OpenRequest{Filters: flacOnly})
			Expect(err).To(MatchError(ContainSubstring("allowed file types")))
		})

		It("requires a directory in directory mode", func() {
			prompter.paths = []string{"/music/a.flac"}
			_, err := p.Open(OpenRequest{Directory: true})
			Expect(err).To(MatchError("/music/a.flac is not a directory"))

			prompter.paths = []string{"/music/albums"}
			paths, err := p.Open(OpenRequest{Directory: true})
			Expect(err).ToNot(HaveOccurred())
			Expect(paths).To(Equal([]string{"/music/albums"}))
		})

		It("returns nil when cancelled", func() {
			prompter.err = prompt.ErrCancelled
			paths, err := p.Open(OpenRequest{})
			Expect(err).ToNot(HaveOccurred())
			Expect(paths).To(BeNil())
		})

		It("returns a list in multiple mode through the bridge", func() {
			prompter.paths = []string{"/music/a.flac", "/music/cover.jpg"}
			rt, err := host.NewBuilder().Plugin(p).Build()
			Expect(err).ToNot(HaveOccurred())

			got, err := rt.Invoke(context.Background(), "plugin:dialog|open", map[string]any{"multiple": true}, nil)
			Expect(err).ToNot(HaveOccurred())
			Expect(got).To(Equal([]string{"/music/a.flac", "/music/cover.jpg"}))
		})
	})

	Describe("Save", func() {
		It("returns a new path without asking to overwrite", func() {
			prompter.paths = []string{"/music/b.flac"}
			path, err := p.Save(SaveRequest{Filters: flacOnly})
			Expect(err).ToNot(HaveOccurred())
			Expect(path).To(Equal("/music/b.flac"))
			Expect(prompter.asked).To(HaveLen(1))
		})

		It("appends the first filter extension when none was typed", func() {
			prompter.paths = []string{"/music/b"}
			path, err := p.Save(SaveRequest{Filters: flacOnly})
			Expect(err).ToNot(HaveOccurred())
			Expect(path).To(Equal("/music/b.flac"))
		})

		It("asks before overwriting and honours a refusal", func() {
			prompter.paths = []string{"/music/a.flac"}
			prompter.confirms = []bool{false}
			path, err := p.Save(SaveRequest{})
			Expect(err).ToNot(HaveOccurred())
			Expect(path).To(BeEmpty())
			Expect(prompter.asked[1]).To(Equal("a.flac already exists. Overwrite?"))
		})

		It("returns the existing path when overwrite is accepted", func() {
			prompter.paths = []string{"/music/a.flac"}
			prompter.confirms = []bool{true}
			path, err := p.Save(SaveRequest{})
			Expect(err).ToNot(HaveOccurred())
			Expect(path).To(Equal("/music/a.flac"))
		})

		It("maps a cancelled save to null on the bridge", func() {
			prompter.err = prompt.ErrCancelled
			rt, err := host.NewBuilder().Plugin(p).Build()
			Expect(err).ToNot(HaveOccurred())

			got, err := rt.Invoke(context.Background(), "plugin:dialog|save", nil, nil)
			Expect(err).ToNot(HaveOccurred())
			Expect(got).To(BeNil())
		})
	})
})
