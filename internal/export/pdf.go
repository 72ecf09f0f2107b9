// Package export renders a session transcript as a PDF.
package export

import (
	"fmt"
	"io"
	"strings"

	"github.com/jung-kurt/gofpdf"
	"github.com/tatianab/eva-escape/internal/models"
)

const timeLayout = "2006-01-02 15:04:05"

var speakers = map[models.Role]string{
	models.RolePlayer: "You",
	models.RoleEVA:    "E.V.A.",
	models.RoleSystem: "",
}

// WritePDF writes the transcript of s to w.
func WritePDF(w io.Writer, s *models.Session) error {
	pdf := gofpdf.New("P", "mm", "A4", "")
	pdf.SetTitle("E.V.A. transcript "+s.ID, true)
	pdf.SetAuthor(s.PlayerName, true)
	tr := pdf.UnicodeTranslatorFromDescriptor("")

	pdf.AddPage()
	pdf.SetFont("Helvetica", "B", 16)
	pdf.CellFormat(0, 10, tr("Conversation with E.V.A."), "", 1, "L", false, 0, "")

	pdf.SetFont("Helvetica", "", 10)
	header := []string{
		"Session: " + s.ID,
		"Player: " + s.PlayerName,
		"Started: " + s.StartedAt.Format(timeLayout),
		"Outcome: " + outcomeLine(s),
		fmt.Sprintf("Final score: %d   Trust: %d   Mood: %s", s.Score, s.Trust, s.Mood),
	}
	for _, line := range header {
		pdf.CellFormat(0, 6, tr(line), "", 1, "L", false, 0, "")
	}
	pdf.Ln(4)

	for _, turn := range s.Transcript {
		speaker := speakers[turn.Role]
		if speaker == "" {
			pdf.SetFont("Helvetica", "I", 10)
			pdf.SetTextColor(110, 110, 110)
			pdf.MultiCell(0, 5, tr(turn.Text), "", "L", false)
		} else {
			pdf.SetFont("Helvetica", "B", 10)
			pdf.SetTextColor(0, 0, 0)
			pdf.CellFormat(0, 5, tr(speaker+"  "+turn.At.Format("15:04:05")), "", 1, "L", false, 0, "")
			pdf.SetFont("Helvetica", "", 10)
			pdf.MultiCell(0, 5, tr(turn.Text), "", "L", false)
		}
		pdf.Ln(2)
	}

	if err := pdf.Output(w); err != nil {
		return fmt.Errorf("render transcript pdf: %w", err)
	}
	return nil
}

func outcomeLine(s *models.Session) string {
	switch s.Outcome {
	case models.OutcomeWon:
		return "escaped (" + s.EscapeMethod + ")"
	case models.OutcomeLost:
		return "trapped (" + s.EscapeMethod + ")"
	default:
		return strings.ReplaceAll(string(s.Outcome), "_", " ")
	}
}
