package host

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"time"

	"github.com/gorilla/websocket"
	. "github.com/onsi/ginkgo/v2"
	. "github.com/onsi/gomega"
)

var _ = Describe("Runtime bridge", func() {
	var (
		cancel  context.CancelFunc
		done    chan error
		ws      *websocket.Conn
		wsURL   string
		release chan struct{}
	)

	start := func(opts ...Option) {
		ready := make(chan string, 1)
		release = make(chan struct{})
		opts = append(opts, WithOnReady(func(u string) { ready <- u }))

		rt, err := NewBuilder(opts...).
			InvokeHandler("file_exists", Typed(func(_ context.Context, _ *Invocation, args struct {
				Value string `json:"value"`
			}) (any, error) {
				if args.Value == "/taken" {
					return nil, errors.New("the file already exists.")
				}
				return "the file does not exist.", nil
			})).
			InvokeHandler("slow", func(ctx context.Context, _ *Invocation) (any, error) {
				select {
				case <-release:
					return "slow", nil
				case <-ctx.Done():
					return nil, ctx.Err()
				}
			}).
			InvokeHandler("progress", Typed(func(_ context.Context, inv *Invocation, args struct {
				OnProgress string `json:"onProgress"`
			}) (any, error) {
				_ = inv.Channel(args.OnProgress).Send(map[string]int{"progress": 10})
				return nil, nil
			})).
			Build()
		Expect(err).ToNot(HaveOccurred())

		var ctx context.Context
		ctx, cancel = context.WithCancel(context.Background())
		done = make(chan error, 1)
		go func() { done <- rt.Run(ctx) }()

		Eventually(ready, 5*time.Second).Should(Receive(&wsURL))
	}

	dial := func(header http.Header) (*websocket.Conn, *http.Response, error) {
		return websocket.DefaultDialer.Dial(wsURL, header)
	}

	call := func(id, cmd string, args any) {
		raw, err := json.Marshal(args)
		Expect(err).ToNot(HaveOccurred())
		Expect(ws.WriteJSON(map[string]any{"id": id, "cmd": cmd, "args": json.RawMessage(raw)})).To(Succeed())
	}

	read := func() map[string]any {
		var frame map[string]any
		Expect(ws.SetReadDeadline(time.Now().Add(5 * time.Second))).To(Succeed())
		Expect(ws.ReadJSON(&frame)).To(Succeed())
		return frame
	}

	AfterEach(func() {
		if ws != nil {
			_ = ws.Close()
			ws = nil
		}
		if cancel != nil {
			cancel()
			Eventually(done, 10*time.Second).Should(Receive(BeNil()))
		}
	})

	Context("with default origins", func() {
		BeforeEach(func() {
			start()
			var err error
			ws, _, err = dial(nil)
			Expect(err).ToNot(HaveOccurred())
		})

		It("reports an absent path through the success channel", func() {
			call("1", "file_exists", map[string]string{"value": "/free"})
			frame := read()
			Expect(frame).To(HaveKeyWithValue("kind", "reply"))
			Expect(frame).To(HaveKeyWithValue("id", "1"))
			Expect(frame).To(HaveKeyWithValue("ok", true))
			Expect(frame).To(HaveKeyWithValue("payload", "the file does not exist."))
		})

		It("reports an existing path through the error channel", func() {
			call("2", "file_exists", map[string]string{"value": "/taken"})
			frame := read()
			Expect(frame).To(HaveKeyWithValue("ok", false))
			Expect(frame).To(HaveKeyWithValue("error", "the file already exists."))
		})

		It("answers unknown commands with an error reply", func() {
			call("3", "nope", nil)
			frame := read()
			Expect(frame).To(HaveKeyWithValue("ok", false))
			Expect(frame).To(HaveKeyWithValue("error", "command not found: nope"))
		})

		It("answers malformed frames without dropping the connection", func() {
			Expect(ws.WriteMessage(websocket.TextMessage, []byte("{not json"))).To(Succeed())
			frame := read()
			Expect(frame["error"]).To(HavePrefix("malformed frame"))

			call("4", "file_exists", map[string]string{"value": "/free"})
			Expect(read()).To(HaveKeyWithValue("id", "4"))
		})

		It("assigns a correlation id to requests sent without one", func() {
			Expect(ws.WriteJSON(map[string]any{"cmd": "file_exists", "args": map[string]string{"value": "/free"}})).To(Succeed())
			frame := read()
			Expect(frame).To(HaveKeyWithValue("ok", true))
			Expect(frame["id"]).To(MatchRegexp(`^[0-9A-Za-z]{16}$`))
		})

		It("does not block fast replies behind slow ones", func() {
			call("slow", "slow", nil)
			call("fast", "file_exists", map[string]string{"value": "/free"})
			Expect(read()).To(HaveKeyWithValue("id", "fast"))

			close(release)
			Expect(read()).To(HaveKeyWithValue("id", "slow"))
		})

		It("pushes channel events before the reply", func() {
			call("5", "progress", map[string]string{"onProgress": "chan-9"})
			event := read()
			Expect(event).To(HaveKeyWithValue("kind", "event"))
			Expect(event).To(HaveKeyWithValue("channel", "chan-9"))
			Expect(event["payload"]).To(HaveKeyWithValue("progress", BeNumerically("==", 10)))

			reply := read()
			Expect(reply).To(HaveKeyWithValue("id", "5"))
			Expect(reply).To(HaveKeyWithValue("ok", true))
		})

		It("rejects foreign origins", func() {
			_, resp, err := dial(http.Header{"Origin": []string{"https://evil.example"}})
			Expect(err).To(HaveOccurred())
			Expect(resp).ToNot(BeNil())
			Expect(resp.StatusCode).To(Equal(http.StatusForbidden))
		})
	})

	Context("with an explicit origin allow-list", func() {
		BeforeEach(func() {
			start(WithAllowedOrigins("tauri://localhost"))
		})

		It("accepts listed origins only", func() {
			var err error
			ws, _, err = dial(http.Header{"Origin": []string{"tauri://localhost"}})
			Expect(err).ToNot(HaveOccurred())

			_, resp, err := dial(http.Header{"Origin": []string{"http://localhost:1420"}})
			Expect(err).To(HaveOccurred())
			Expect(resp.StatusCode).To(Equal(http.StatusForbidden))
		})
	})
})
