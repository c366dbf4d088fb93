package shell

import (
	"context"
	"errors"
	"runtime"

	"flacdesk/infrastructure/host"

	. "github.com/onsi/ginkgo/v2"
	. "github.com/onsi/gomega"
)

var _ = Describe("Plugin", func() {
	var (
		p      *Plugin
		opened []string
	)

	BeforeEach(func() {
		if runtime.GOOS == "windows" {
			Skip("requires a POSIX shell")
		}
		opened = nil
		p = New([]Command{
			{Name: "sh", Cmd: "sh", Args: []string{"-c"}, AllowArgs: true},
			{Name: "pwd", Cmd: "pwd"},
		}, WithOpener(func(_ context.Context, target string) error {
			opened = append(opened, target)
			return nil
		}))
	})

	Describe("Execute", func() {
		It("captures output and exit code", func() {
			out, err := p.Execute(context.Background(), ExecuteRequest{
				Program: "sh",
				Args:    []string{"echo out; echo err >&2; exit 3"},
			})
			Expect(err).ToNot(HaveOccurred())
			Expect(out.Code).To(Equal(3))
			Expect(out.Stdout).To(Equal("out\n"))
			Expect(out.Stderr).To(Equal("err\n"))
		})

		It("applies cwd and env options", func() {
			dir := GinkgoT().TempDir()
			out, err := p.Execute(context.Background(), ExecuteRequest{
				Program: "sh",
				Args:    []string{`printf "%s" "$FLAC_QUALITY"; pwd`},
				Options: ExecOptions{Cwd: dir, Env: map[string]string{"FLAC_QUALITY": "hires"}},
			})
			Expect(err).ToNot(HaveOccurred())
			Expect(out.Code).To(BeZero())
			Expect(out.Stdout).To(HavePrefix("hires"))
			Expect(out.Stdout).To(ContainSubstring(dir))
		})

		It("rejects programs outside the scope", func() {
			_, err := p.Execute(context.Background(), ExecuteRequest{Program: "rm"})
			Expect(errors.Is(err, ErrNotAllowed)).To(BeTrue())
		})

		It("rejects extra args unless allowed", func() {
			_, err := p.Execute(context.Background(), ExecuteRequest{Program: "pwd", Args: []string{"-P"}})
			Expect(err).To(MatchError(ContainSubstring("does not accept arguments")))
		})

		It("is reachable through the host runtime", func() {
			rt, err := host.NewBuilder().Plugin(p).Build()
			Expect(err).ToNot(HaveOccurred())

			got, err := rt.Invoke(context.Background(), "plugin:shell|execute", map[string]any{
				"program": "sh",
				"args":    []string{"echo bridged"},
			}, nil)
			Expect(err).ToNot(HaveOccurred())
			Expect(got.(*Output).Stdout).To(Equal("bridged\n"))
		})
	})

	Describe("Open", func() {
		DescribeTable("allowed targets",
			func(target string) {
				Expect(p.Open(context.Background(), target)).To(Succeed())
				Expect(opened).To(ConsistOf(target))
			},
			Entry("https link", "https://flac.life/"),
			Entry("http link", "http://example.com/a"),
			Entry("mail link", "mailto:someone@example.com"),
			Entry("phone link", "tel:12345"),
		)

		DescribeTable("blocked targets",
			func(target string) {
				Expect(errors.Is(p.Open(context.Background(), target), ErrNotAllowed)).To(BeTrue())
				Expect(opened).To(BeEmpty())
			},
			Entry("local file", "/etc/passwd"),
			Entry("file url", "file:///etc/passwd"),
			Entry("bare scheme", "https://"),
		)
	})
})
