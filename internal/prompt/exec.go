package prompt

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"html"
	"os"
	"os/exec"
	"strings"

	"authhandler/internal/channel"
	"authhandler/pkg/logging"
)

// DefaultCommand is the dialog program ExecPrompter runs.
const DefaultCommand = "zenity"

const (
	formSeparator = "\x1e"
	labelDetails  = "Details"
	labelReload   = "Reload"
	labelYes      = "Yes"
	labelNo       = "No"
)

// Runner runs a program and reports its standard output and exit code. A
// non-zero exit is not an error; err is reserved for failing to run at all.
type Runner func(ctx context.Context, name string, args ...string) (stdout string, exitCode int, err error)

// ExecRunner runs programs with os/exec.
func ExecRunner(ctx context.Context, name string, args ...string) (string, int, error) {
	cmd := exec.CommandContext(ctx, name, args...)
	var out bytes.Buffer
	cmd.Stdout = &out

	err := cmd.Run()
	if ctx.Err() != nil {
		return "", -1, ctx.Err()
	}
	var exitErr *exec.ExitError
	if errors.As(err, &exitErr) {
		return out.String(), exitErr.ExitCode(), nil
	}
	if err != nil {
		return "", -1, fmt.Errorf("failed to run %s: %w", name, err)
	}
	return out.String(), 0, nil
}

// ExecPrompter implements Prompter with zenity-compatible dialogs.
type ExecPrompter struct {
	command string
	run     Runner
	// viewer opens captcha images; empty disables it.
	viewer string
}

// NewExecPrompter creates a prompter running command, or DefaultCommand when
// command is empty. A nil run uses ExecRunner.
func NewExecPrompter(command string, run Runner) *ExecPrompter {
	if command == "" {
		command = DefaultCommand
	}
	if run == nil {
		run = ExecRunner
	}
	return &ExecPrompter{command: command, run: run, viewer: "xdg-open"}
}

func (p *ExecPrompter) dialog(ctx context.Context, args ...string) (string, int, error) {
	out, code, err := p.run(ctx, p.command, args...)
	if err != nil {
		return "", code, err
	}
	return strings.TrimSuffix(out, "\n"), code, nil
}

// AskPassword shows a password form, with a "remember" choice when the
// request allows saving.
func (p *ExecPrompter) AskPassword(ctx context.Context, req PasswordRequest) (PasswordResponse, error) {
	text := req.Message
	if text == "" {
		text = fmt.Sprintf("Please enter the password for %s", req.AccountName)
	}
	text = html.EscapeString(text)
	if req.ErrorMessage != "" {
		text += "\n\n<b>" + html.EscapeString(req.ErrorMessage) + "</b>"
	}

	args := []string{
		"--forms",
		"--title=Password required",
		"--text=" + text,
		"--add-password=Password",
		"--separator=" + formSeparator,
	}
	if req.CanSave {
		args = append(args, "--add-combo=Remember password", "--combo-values="+labelYes+"|"+labelNo)
	}

	out, code, err := p.dialog(ctx, args...)
	if err != nil {
		return PasswordResponse{}, err
	}
	if code != 0 {
		return PasswordResponse{}, ErrCancelled
	}

	if !req.CanSave {
		return PasswordResponse{Password: out}, nil
	}
	i := strings.LastIndex(out, formSeparator)
	if i < 0 {
		return PasswordResponse{Password: out}, nil
	}
	return PasswordResponse{
		Password: out[:i],
		Save:     out[i+len(formSeparator):] == labelYes,
	}, nil
}

// AskCertificate asks whether to continue with an untrusted certificate and,
// if so, for how long to remember the exception. The details view returns to
// the question.
func (p *ExecPrompter) AskCertificate(ctx context.Context, req CertificateRequest) (CertificateDecision, error) {
	var b strings.Builder
	fmt.Fprintf(&b, "The certificate presented by <b>%s</b> is not trusted:\n", html.EscapeString(req.Hostname))
	for _, r := range req.Rejections {
		fmt.Fprintf(&b, "\n  • %s", html.EscapeString(describeRejection(r)))
	}
	b.WriteString("\n\nDo you want to connect anyway?")

	for {
		out, code, err := p.dialog(ctx,
			"--question",
			"--title=Untrusted certificate",
			"--text="+b.String(),
			"--ok-label=Continue",
			"--cancel-label=Cancel",
			"--extra-button="+labelDetails,
		)
		if err != nil {
			return DecisionReject, err
		}
		if code == 0 {
			break
		}
		if out != labelDetails {
			return DecisionReject, nil
		}
		details := fmt.Sprintf("Hostname: %s\nSHA-256: %s\n\n%s", req.Hostname, req.Fingerprint, req.Details)
		if _, _, err := p.dialog(ctx, "--info", "--title=Certificate details", "--no-markup", "--text="+details); err != nil {
			return DecisionReject, err
		}
	}

	_, code, err := p.dialog(ctx,
		"--question",
		"--title=Remember decision",
		"--text=Remember this exception for "+html.EscapeString(req.Hostname)+"?",
		"--ok-label=Always",
		"--cancel-label=This session only",
	)
	if err != nil {
		return DecisionReject, err
	}
	if code == 0 {
		return DecisionAcceptForever, nil
	}
	return DecisionAcceptSession, nil
}

// AskCaptcha opens the captcha image in the image viewer and asks for the
// text it shows.
func (p *ExecPrompter) AskCaptcha(ctx context.Context, req CaptchaRequest) (CaptchaResponse, error) {
	if p.viewer != "" && len(req.Image) > 0 {
		path, err := writeImage(req.Image, req.MimeType)
		if err != nil {
			logging.Warn("Prompt", "Failed to write captcha image: %v", err)
		} else {
			defer os.Remove(path)
			if _, _, err := p.run(ctx, p.viewer, path); err != nil {
				logging.Warn("Prompt", "Failed to open captcha image: %v", err)
			}
		}
	}

	text := "Enter the text shown in the image"
	if req.Label != "" {
		text = req.Label
	}
	text = html.EscapeString(text)
	if req.ErrorMessage != "" {
		text += "\n\n<b>" + html.EscapeString(req.ErrorMessage) + "</b>"
	}

	out, code, err := p.dialog(ctx,
		"--entry",
		"--title=Verification for "+req.AccountName,
		"--text="+text,
		"--extra-button="+labelReload,
	)
	if err != nil {
		return CaptchaResponse{}, err
	}
	switch {
	case code == 0:
		return CaptchaResponse{Answer: strings.TrimSpace(out)}, nil
	case out == labelReload:
		return CaptchaResponse{Reload: true}, nil
	default:
		return CaptchaResponse{}, ErrCancelled
	}
}

func writeImage(data []byte, mimeType string) (string, error) {
	ext := ".img"
	switch mimeType {
	case "image/png":
		ext = ".png"
	case "image/jpeg":
		ext = ".jpg"
	case "image/gif":
		ext = ".gif"
	}
	f, err := os.CreateTemp("", "captcha-*"+ext)
	if err != nil {
		return "", err
	}
	if _, err := f.Write(data); err != nil {
		f.Close()
		os.Remove(f.Name())
		return "", err
	}
	return f.Name(), f.Close()
}

func describeRejection(r channel.Rejection) string {
	switch r.Reason {
	case channel.RejectUntrusted:
		return "The certificate is not signed by a trusted authority"
	case channel.RejectExpired:
		return "The certificate has expired"
	case channel.RejectNotActivated:
		return "The certificate is not valid yet"
	case channel.RejectFingerprintMismatch:
		return "The certificate fingerprint does not match"
	case channel.RejectHostnameMismatch:
		return "The certificate was issued for a different host"
	case channel.RejectSelfSigned:
		return "The certificate is self-signed"
	case channel.RejectRevoked:
		return "The certificate has been revoked"
	case channel.RejectInsecure:
		return "The certificate uses an insecure algorithm or usage"
	case channel.RejectLimitExceeded:
		return "The certificate chain is too long"
	default:
		if r.Error != "" {
			return r.Error
		}
		return "The certificate could not be verified"
	}
}
