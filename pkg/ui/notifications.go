package ui

import (
	"fmt"
	"os/exec"
	"runtime"
	"strings"
)

// NotificationSender delivers a desktop notification
type NotificationSender interface {
	Send(title, message string) error
}

// LinuxNotificationSender uses notify-send
type LinuxNotificationSender struct{}

func (l *LinuxNotificationSender) Send(title, message string) error {
	return exec.Command("notify-send", "--app-name=socialfetch", title, message).Run()
}

// MacOSNotificationSender uses osascript
type MacOSNotificationSender struct{}

func (m *MacOSNotificationSender) Send(title, message string) error {
	script := fmt.Sprintf(`display notification %s with title %s`, appleQuote(message), appleQuote(title))
	return exec.Command("osascript", "-e", script).Run()
}

func appleQuote(s string) string {
	return `"` + strings.NewReplacer(`\`, `\\`, `"`, `\"`).Replace(s) + `"`
}

// WindowsNotificationSender uses a PowerShell toast
type WindowsNotificationSender struct{}

func (w *WindowsNotificationSender) Send(title, message string) error {
	quote := strings.NewReplacer("'", "''")
	script := fmt.Sprintf(`
		[Windows.UI.Notifications.ToastNotificationManager, Windows.UI.Notifications, ContentType = WindowsRuntime] | Out-Null
		$t = [Windows.UI.Notifications.ToastNotificationManager]::GetTemplateContent([Windows.UI.Notifications.ToastTemplateType]::ToastText02)
		$n = $t.GetElementsByTagName('text')
		$n.Item(0).AppendChild($t.CreateTextNode('%s')) | Out-Null
		$n.Item(1).AppendChild($t.CreateTextNode('%s')) | Out-Null
		$toast = [Windows.UI.Notifications.ToastNotification]::new($t)
		[Windows.UI.Notifications.ToastNotificationManager]::CreateToastNotifier('socialfetch').Show($toast)
	`, quote.Replace(title), quote.Replace(message))

	return exec.Command("powershell", "-NoProfile", "-NonInteractive", "-Command", script).Run()
}

// Notifier reports the end of a long run on the console and, when a sender
// exists for the platform, on the desktop
type Notifier struct {
	sender NotificationSender
	p      *Printer
}

// NewNotifier picks a sender for the current platform; desktop=false keeps
// notifications on the console
func NewNotifier(p *Printer, desktop bool) *Notifier {
	var sender NotificationSender
	if desktop {
		switch runtime.GOOS {
		case "linux":
			sender = &LinuxNotificationSender{}
		case "darwin":
			sender = &MacOSNotificationSender{}
		case "windows":
			sender = &WindowsNotificationSender{}
		}
	}
	return &Notifier{sender: sender, p: p}
}

// NewNotifierWithSender is used by tests
func NewNotifierWithSender(p *Printer, sender NotificationSender) *Notifier {
	return &Notifier{sender: sender, p: p}
}

// Success announces a finished run
func (n *Notifier) Success(title, message string) {
	fmt.Fprintf(n.p.Writer(), "%s: %s\n", n.p.Green(title), message)
	n.send(title, message)
}

// Failure announces a failed run
func (n *Notifier) Failure(title, message string) {
	fmt.Fprintf(n.p.Writer(), "%s: %s\n", n.p.Red(title), n.p.Red(message))
	n.send(title, message)
}

func (n *Notifier) send(title, message string) {
	if n.sender != nil {
		// desktop delivery is best effort
		_ = n.sender.Send(title, message)
	}
}
