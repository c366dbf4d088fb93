package fetch

import (
	"context"
	"io"
	"net/http"
	"net/http/httptest"
	"strings"

	"flacdesk/infrastructure/host"

	. "github.com/onsi/ginkgo/v2"
	. "github.com/onsi/gomega"
)

var _ = Describe("Scope", func() {
	It("matches globs across path segments", func() {
		s, err := NewScope("https://api.flac.life/*")
		Expect(err).ToNot(HaveOccurred())
		Expect(s.Allow("https://api.flac.life/search/qq?keyword=a")).To(Succeed())
		Expect(s.Allow("https://api.flac.life.evil.com/x")).To(MatchError(ErrOutOfScope))
		Expect(s.Allow("http://api.flac.life/x")).To(MatchError(ErrOutOfScope))
	})

	It("rejects non-http schemes even when a glob matches", func() {
		s, err := NewScope("*")
		Expect(err).ToNot(HaveOccurred())
		Expect(s.Allow("file:///etc/passwd")).To(MatchError(ContainSubstring("unsupported scheme")))
	})

	It("treats regexp metacharacters literally", func() {
		s, err := NewScope("https://a.com/x?y=1")
		Expect(err).ToNot(HaveOccurred())
		Expect(s.Allow("https://a.com/x?y=1")).To(Succeed())
		Expect(s.Allow("https://a.com/xy=1")).ToNot(Succeed())
	})

	It("allows nothing when empty", func() {
		s, err := NewScope()
		Expect(err).ToNot(HaveOccurred())
		Expect(s.Allow("https://example.com")).To(MatchError(ErrOutOfScope))
		Expect(s.Patterns()).To(BeEmpty())
	})
})

var _ = Describe("Plugin", func() {
	var (
		ts *httptest.Server
		p  *Plugin
	)

	BeforeEach(func() {
		mux := http.NewServeMux()
		mux.HandleFunc("/hello", func(w http.ResponseWriter, r *http.Request) {
			w.Header().Set("X-Test", "ok")
			w.WriteHeader(http.StatusCreated)
			_, _ = io.WriteString(w, "hello "+r.Header.Get("A"))
		})
		mux.HandleFunc("/echo", func(w http.ResponseWriter, r *http.Request) {
			b, _ := io.ReadAll(r.Body)
			_, _ = io.WriteString(w, r.Method+":"+string(b))
		})
		mux.HandleFunc("/redirect", func(w http.ResponseWriter, r *http.Request) {
			http.Redirect(w, r, "/hello", http.StatusFound)
		})
		mux.HandleFunc("/escape", func(w http.ResponseWriter, r *http.Request) {
			http.Redirect(w, r, "https://elsewhere.example/", http.StatusFound)
		})
		ts = httptest.NewServer(mux)

		scope, err := NewScope(ts.URL + "/*")
		Expect(err).ToNot(HaveOccurred())
		p = New(scope)
	})

	AfterEach(func() {
		ts.Close()
	})

	It("registers the fetch command under the http plugin", func() {
		Expect(p.Name()).To(Equal("http"))
		Expect(p.Commands()).To(HaveKey("fetch"))
	})

	It("performs GET requests with headers", func() {
		resp, err := p.Fetch(context.Background(), Request{
			URL:     ts.URL + "/hello",
			Headers: map[string]string{"A": "B"},
		})
		Expect(err).ToNot(HaveOccurred())
		Expect(resp.Status).To(Equal(http.StatusCreated))
		Expect(resp.StatusText).To(Equal("Created"))
		Expect(resp.OK()).To(BeTrue())
		Expect(resp.Body).To(Equal("hello B"))
		Expect(resp.Headers).To(HaveKeyWithValue("X-Test", "ok"))
	})

	It("sends request bodies", func() {
		resp, err := p.Fetch(context.Background(), Request{
			URL:    ts.URL + "/echo",
			Method: "post",
			Body:   "abc",
		})
		Expect(err).ToNot(HaveOccurred())
		Expect(resp.Body).To(Equal("POST:abc"))
	})

	It("follows redirects inside the scope", func() {
		resp, err := p.Fetch(context.Background(), Request{URL: ts.URL + "/redirect"})
		Expect(err).ToNot(HaveOccurred())
		Expect(resp.Body).To(Equal("hello "))
		Expect(resp.URL).To(Equal(ts.URL + "/hello"))
	})

	It("stops at the redirect limit", func() {
		zero := 0
		resp, err := p.Fetch(context.Background(), Request{URL: ts.URL + "/redirect", MaxRedirections: &zero})
		Expect(err).ToNot(HaveOccurred())
		Expect(resp.Status).To(Equal(http.StatusFound))
	})

	It("blocks redirects leaving the scope", func() {
		_, err := p.Fetch(context.Background(), Request{URL: ts.URL + "/escape"})
		Expect(err).To(HaveOccurred())
		Expect(IsOutOfScope(err)).To(BeTrue())
	})

	It("blocks URLs outside the scope before any I/O", func() {
		_, err := p.Fetch(context.Background(), Request{URL: "https://example.com/"})
		Expect(IsOutOfScope(err)).To(BeTrue())
	})

	It("is reachable through the host runtime", func() {
		rt, err := host.NewBuilder().Plugin(p).Build()
		Expect(err).ToNot(HaveOccurred())

		out, err := rt.Invoke(context.Background(), "plugin:http|fetch", map[string]any{"url": ts.URL + "/hello"}, nil)
		Expect(err).ToNot(HaveOccurred())
		resp, ok := out.(*Response)
		Expect(ok).To(BeTrue())
		Expect(strings.HasPrefix(resp.Body, "hello")).To(BeTrue())
	})
})
