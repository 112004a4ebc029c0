package render

import (
	"fmt"
	"io"

	"github.com/orange-finance/odeploy/internal/domain/models"
	"github.com/orange-finance/odeploy/internal/usecase"
	"github.com/samber/lo"
)

// VerifyRenderer handles rendering of verification results
type VerifyRenderer struct {
	out io.Writer
}

// NewVerifyRenderer creates a new verify renderer
func NewVerifyRenderer(out io.Writer) *VerifyRenderer {
	return &VerifyRenderer{out: out}
}

// Render renders one line per unit and the failures as warnings
func (r *VerifyRenderer) Render(results []*usecase.VerifyResult) error {
	if len(results) == 0 {
		fmt.Fprintln(r.out, "Nothing to verify")
		return nil
	}

	for _, res := range results {
		info := res.Info
		detail := info.URL
		switch {
		case res.Skipped:
			detail = info.Reason
		case info.Status == models.VerificationStatusFailed:
			detail = fmt.Sprintf("via %s", info.Provider)
		}
		fmt.Fprintf(r.out, "  %-28s %s %s\n", res.Deployment.ID, verificationCell(info), faintStyle.Sprint(detail))
	}

	failed := lo.FilterMap(results, func(res *usecase.VerifyResult, _ int) (string, bool) {
		if res.Warning == nil {
			return "", false
		}
		return res.Warning.Error(), true
	})
	RenderWarnings(r.out, failed)
	return nil
}
