package render

import (
	"fmt"
	"io"
	"strings"

	"github.com/fatih/color"
	"github.com/jedib0t/go-pretty/v6/table"
	"github.com/orange-finance/odeploy/internal/domain/models"
	"golang.org/x/text/cases"
	"golang.org/x/text/language"
)

var (
	addressStyle       = color.New(color.FgWhite)
	faintStyle         = color.New(color.Faint)
	pendingStyle       = color.New(color.FgYellow)
	verifiedStyle      = color.New(color.FgGreen)
	failedStyle        = color.New(color.FgRed)
	sectionHeaderStyle = color.New(color.Bold, color.FgHiWhite)
	envHeader          = color.New(color.BgCyan, color.FgBlack)
	envHeaderBold      = color.New(color.BgCyan, color.FgBlack, color.Bold)
)

// FormatWarning formats a warning message with the warning icon
func FormatWarning(message string) string {
	return color.New(color.FgYellow).Sprintf("⚠️  %s", message)
}

// FormatError formats an error message with the error icon
func FormatError(message string) string {
	if len(message) > 0 {
		message = strings.ToUpper(message[:1]) + message[1:]
	}
	return color.New(color.FgRed).Sprintf("❌ %s", message)
}

// FormatSuccess formats a success message with the success icon
func FormatSuccess(message string) string {
	return color.New(color.FgGreen).Sprintf("✅ %s", message)
}

// RenderWarnings prints warnings as a trailing block
func RenderWarnings(out io.Writer, warnings []string) {
	if len(warnings) == 0 {
		return
	}
	fmt.Fprintln(out)
	for _, w := range warnings {
		fmt.Fprintln(out, FormatWarning(w))
	}
}

func title(s string) string {
	return cases.Title(language.English).String(strings.ToLower(s))
}

func verificationCell(info models.VerificationInfo) string {
	switch info.Status {
	case models.VerificationStatusVerified:
		return verifiedStyle.Sprint("✓ verified")
	case models.VerificationStatusFailed:
		return failedStyle.Sprint("✗ failed")
	case models.VerificationStatusSkipped:
		return faintStyle.Sprint("- skipped")
	default:
		return pendingStyle.Sprint("? unverified")
	}
}

func configurationCell(info models.ConfigurationInfo) string {
	switch info.Status {
	case models.ConfigurationApplied:
		return verifiedStyle.Sprintf("%d/%d", len(info.Applied), info.Total)
	case models.ConfigurationPending:
		return pendingStyle.Sprintf("%d/%d pending", len(info.Applied), info.Total)
	case models.ConfigurationFailed:
		return failedStyle.Sprintf("%d/%d failed", len(info.Applied), info.Total)
	default:
		return faintStyle.Sprint("-")
	}
}

func stateCell(state models.UnitState) string {
	switch state {
	case models.StateDeployedFresh:
		return verifiedStyle.Sprint("deployed")
	case models.StateUpgraded:
		return color.New(color.FgMagenta).Sprint("upgraded")
	case models.StateDeployedExisting:
		return faintStyle.Sprint("unchanged")
	default:
		return pendingStyle.Sprint(string(state))
	}
}

// newTable returns a borderless table writer in the style of the list output
func newTable(out io.Writer, indent string) table.Writer {
	t := table.NewWriter()
	t.SetOutputMirror(out)
	t.SetStyle(table.StyleLight)
	t.Style().Options.SeparateRows = false
	t.Style().Options.DrawBorder = false
	t.Style().Options.SeparateHeader = false
	t.Style().Options.SeparateColumns = false
	t.Style().Box = table.BoxStyle{
		PaddingLeft:  indent,
		PaddingRight: "   ",
	}
	return t
}
