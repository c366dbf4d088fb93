package host

import (
	"context"
	"errors"

	. "github.com/onsi/ginkgo/v2"
	. "github.com/onsi/gomega"
)

type fakePlugin struct {
	name     string
	commands map[string]Handler
}

func (p *fakePlugin) Name() string                 { return p.name }
func (p *fakePlugin) Commands() map[string]Handler { return p.commands }

func echo(_ context.Context, inv *Invocation) (any, error) {
	var args map[string]any
	if err := inv.Bind(&args); err != nil {
		return nil, err
	}
	return args, nil
}

var _ = Describe("Builder", func() {
	It("addresses plugin commands with the plugin prefix", func() {
		rt, err := NewBuilder().
			Plugin(&fakePlugin{name: "dialog", commands: map[string]Handler{"ask": echo}}).
			Plugin(&fakePlugin{name: "shell", commands: map[string]Handler{"open": echo, "execute": echo}}).
			InvokeHandler("file_exists", echo).
			Build()
		Expect(err).ToNot(HaveOccurred())
		Expect(rt.Commands()).To(Equal([]string{
			"file_exists",
			"plugin:dialog|ask",
			"plugin:shell|execute",
			"plugin:shell|open",
		}))
	})

	It("rejects duplicate plugins", func() {
		_, err := NewBuilder().
			Plugin(&fakePlugin{name: "http"}).
			Plugin(&fakePlugin{name: "http"}).
			Build()
		Expect(err).To(MatchError(ContainSubstring(`plugin "http" registered twice`)))
	})

	It("rejects unnamed plugins", func() {
		_, err := NewBuilder().Plugin(&fakePlugin{}).Build()
		Expect(err).To(MatchError(ContainSubstring("plugin name is required")))
	})

	It("rejects duplicate, reserved and empty command names", func() {
		_, err := NewBuilder().
			InvokeHandler("file_exists", echo).
			InvokeHandler("file_exists", echo).
			InvokeHandler("plugin:x|y", echo).
			InvokeHandler("", echo).
			InvokeHandler("noop", nil).
			Build()
		Expect(err).To(HaveOccurred())
		Expect(err.Error()).To(ContainSubstring(`"file_exists" registered twice`))
		Expect(err.Error()).To(ContainSubstring("reserved plugin: prefix"))
		Expect(err.Error()).To(ContainSubstring("command name is required"))
		Expect(err.Error()).To(ContainSubstring(`"noop" has no handler`))
	})
})

var _ = Describe("Runtime.Invoke", func() {
	var rt *Runtime

	BeforeEach(func() {
		var err error
		rt, err = NewBuilder().
			InvokeHandler("echo", echo).
			InvokeHandler("fail", func(context.Context, *Invocation) (any, error) {
				return nil, errors.New("the file already exists.")
			}).
			InvokeHandler("boom", func(context.Context, *Invocation) (any, error) {
				panic("kaboom")
			}).
			InvokeHandler("progress", Typed(func(_ context.Context, inv *Invocation, args struct {
				OnProgress string `json:"onProgress"`
			}) (any, error) {
				ch := inv.Channel(args.OnProgress)
				for i := 1; i <= 3; i++ {
					if err := ch.Send(i); err != nil {
						return nil, err
					}
				}
				return "done", nil
			})).
			Build()
		Expect(err).ToNot(HaveOccurred())
	})

	It("encodes Go values as args", func() {
		out, err := rt.Invoke(context.Background(), "echo", map[string]string{"value": "/tmp/a"}, nil)
		Expect(err).ToNot(HaveOccurred())
		Expect(out).To(HaveKeyWithValue("value", "/tmp/a"))
	})

	It("returns handler errors unchanged", func() {
		_, err := rt.Invoke(context.Background(), "fail", nil, nil)
		Expect(err).To(MatchError("the file already exists."))
	})

	It("reports unknown commands", func() {
		_, err := rt.Invoke(context.Background(), "missing", nil, nil)
		Expect(errors.Is(err, ErrCommandNotFound)).To(BeTrue())
		Expect(err.Error()).To(Equal("command not found: missing"))
	})

	It("reports malformed args", func() {
		_, err := rt.Invoke(context.Background(), "echo", []byte(`[1,2`), nil)
		Expect(errors.Is(err, ErrInvalidArgs)).To(BeTrue())
	})

	It("recovers from panicking handlers", func() {
		_, err := rt.Invoke(context.Background(), "boom", nil, nil)
		Expect(err).To(MatchError("command boom failed unexpectedly"))
	})

	It("streams channel events through the emitter", func() {
		var got []any
		emit := func(channel string, payload any) error {
			Expect(channel).To(Equal("ch-1"))
			got = append(got, payload)
			return nil
		}
		out, err := rt.Invoke(context.Background(), "progress", map[string]string{"onProgress": "ch-1"}, emit)
		Expect(err).ToNot(HaveOccurred())
		Expect(out).To(Equal("done"))
		Expect(got).To(Equal([]any{1, 2, 3}))
	})

	It("drops events when no channel was requested", func() {
		out, err := rt.Invoke(context.Background(), "progress", nil, nil)
		Expect(err).ToNot(HaveOccurred())
		Expect(out).To(Equal("done"))
	})
})
