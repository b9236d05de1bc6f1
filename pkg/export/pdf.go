package export

import (
	"bytes"
	"fmt"
	"io"
	"log/slog"
	"strings"

	"github.com/phpdave11/gofpdf"

	"voyageai/pkg/llm/imageutil"
	"voyageai/pkg/model"
)

var pdfImageTypes = map[string]string{
	"image/jpeg": "JPG",
	"image/jpg":  "JPG",
	"image/png":  "PNG",
	"image/gif":  "GIF",
}

// PDF writes a printable itinerary. Ready day images are embedded; others are skipped.
func PDF(w io.Writer, req model.TripRequest, result *model.ItineraryResult) error {
	pdf := gofpdf.New("P", "mm", "A4", "")
	pdf.SetMargins(20, 20, 20)
	pdf.SetAutoPageBreak(true, 20)
	pdf.SetTitle(fmt.Sprintf("Trip to %s", req.Destination), true)
	pdf.SetCreator("VoyageAI", true)
	tr := pdf.UnicodeTranslatorFromDescriptor("")

	pageW, _ := pdf.GetPageSize()
	left, _, right, _ := pdf.GetMargins()
	contentW := pageW - left - right

	pdf.AddPage()

	// Title
	pdf.SetFont("Helvetica", "B", 20)
	pdf.CellFormat(0, 12, tr(fmt.Sprintf("Trip to %s", req.Destination)), "", 1, "L", false, 0, "")
	if !req.StartDate.IsZero() {
		pdf.SetFont("Helvetica", "", 11)
		pdf.SetTextColor(100, 100, 100)
		pdf.CellFormat(0, 7, fmt.Sprintf("%s to %s", req.StartDate, req.EndDate), "", 1, "L", false, 0, "")
		pdf.SetTextColor(0, 0, 0)
	}
	pdf.Ln(4)

	heading(pdf, tr, "Trip Summary")
	pdf.SetFont("Helvetica", "", 11)
	pdf.MultiCell(0, 6, tr(result.Summary), "", "L", false)
	pdf.Ln(4)

	if len(result.Accommodations) > 0 {
		heading(pdf, tr, "Accommodation Options")
		for _, acc := range result.Accommodations {
			pdf.SetFont("Helvetica", "B", 11)
			pdf.MultiCell(0, 6, tr(fmt.Sprintf("%s (%s)", acc.Name, acc.Type)), "", "L", false)
			pdf.SetFont("Helvetica", "", 10)
			pdf.MultiCell(0, 5, tr(acc.Description), "", "L", false)
			pdf.Ln(2)
		}
		pdf.Ln(2)
	}

	for _, day := range result.Itinerary {
		pdf.AddPage()
		heading(pdf, tr, fmt.Sprintf("Day %d: %s", day.Day, day.Title))

		embedImage(pdf, day, left, contentW)

		pdf.SetFont("Helvetica", "I", 10)
		pdf.MultiCell(0, 5, tr(fmt.Sprintf("Weather: %s (%s°C / %s°C)", day.Weather.Summary, temp(day.Weather.LowTemp), temp(day.Weather.HighTemp))), "", "L", false)
		pdf.Ln(3)

		for _, p := range model.Periods {
			acts := day.Activities(p)
			if len(acts) == 0 {
				continue
			}
			pdf.SetFont("Helvetica", "B", 12)
			pdf.CellFormat(0, 7, model.Label(string(p)), "", 1, "L", false, 0, "")
			for _, a := range acts {
				pdf.SetFont("Helvetica", "B", 10)
				pdf.MultiCell(0, 5, tr(fmt.Sprintf("%s  %s", a.Time, a.Name)), "", "L", false)
				pdf.SetFont("Helvetica", "", 10)
				pdf.MultiCell(0, 5, tr(a.Description), "", "L", false)
				pdf.Ln(1)
			}
			pdf.Ln(2)
		}

		if len(day.VibeTags) > 0 {
			pdf.SetFont("Helvetica", "", 9)
			pdf.SetTextColor(100, 100, 100)
			pdf.MultiCell(0, 5, tr("Vibe: "+strings.Join(day.VibeTags, " / ")), "", "L", false)
			pdf.SetTextColor(0, 0, 0)
		}
	}

	return pdf.Output(w)
}

func heading(pdf *gofpdf.Fpdf, tr func(string) string, text string) {
	pdf.SetFont("Helvetica", "B", 14)
	pdf.MultiCell(0, 8, tr(text), "", "L", false)
	pdf.Ln(2)
}

func embedImage(pdf *gofpdf.Fpdf, day model.ItineraryDay, x, width float64) {
	if !day.Image.IsReady() {
		return
	}
	mimeType, data, err := imageutil.DecodeDataURI(day.Image.URI())
	if err != nil {
		slog.Debug("Export: skipping day image", "day", day.Day, "error", err)
		return
	}
	imgType, ok := pdfImageTypes[mimeType]
	if !ok {
		slog.Debug("Export: unsupported image type", "day", day.Day, "mime", mimeType)
		return
	}

	name := fmt.Sprintf("day-%d", day.Day)
	opts := gofpdf.ImageOptions{ImageType: imgType}
	info := pdf.RegisterImageOptionsReader(name, opts, bytes.NewReader(data))
	if info == nil || pdf.Err() {
		// A broken image must not fail the whole document.
		slog.Debug("Export: image could not be embedded", "day", day.Day, "error", pdf.Error())
		pdf.ClearError()
		return
	}
	pdf.ImageOptions(name, x, 0, width, 0, true, opts, 0, "")
	pdf.Ln(4)
}
