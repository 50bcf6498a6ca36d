// Package ticket renders booking e-tickets as single-page PDFs.
package ticket

import (
	"bytes"
	"fmt"

	"github.com/jung-kurt/gofpdf"
	qrcode "github.com/skip2/go-qrcode"

	"github.com/omarkt13/SeaFable-v01-sub000/internal/model"
)

// Payload is the string encoded in a ticket's QR code.
func Payload(bookingID string) string {
	return "seafable:booking:" + bookingID
}

// Render builds the e-ticket for b. slot may be nil when the slot record is gone.
func Render(b *model.Booking, exp *model.Experience, slot *model.AvailabilitySlot) ([]byte, error) {
	qr, err := qrcode.Encode(Payload(b.ID), qrcode.Medium, 256)
	if err != nil {
		return nil, fmt.Errorf("encode qr: %w", err)
	}

	pdf := gofpdf.New("P", "mm", "A4", "")
	pdf.SetMargins(15, 15, 15)
	pdf.SetAutoPageBreak(false, 0)
	pdf.AddPage()
	tr := pdf.UnicodeTranslatorFromDescriptor("")

	pdf.SetFont("Helvetica", "B", 22)
	pdf.Cell(0, 15, "SEAFABLE eTICKET")
	pdf.Ln(18)
	pdf.SetDrawColor(220, 220, 220)
	pdf.Line(15, pdf.GetY(), 195, pdf.GetY())
	pdf.Ln(8)

	yStart := pdf.GetY()
	pdf.SetFillColor(245, 245, 245)
	pdf.Rect(15, yStart, 120, 55, "F")

	pdf.SetXY(20, yStart+7)
	pdf.SetFont("Helvetica", "B", 14)
	pdf.Cell(0, 8, "BOOKING SUMMARY")
	pdf.Ln(10)
	pdf.SetFont("Helvetica", "", 12)
	line(pdf, "Booking ID: %s", b.ID)
	line(pdf, "Guests: %d", b.NumberOfGuests)
	line(pdf, "Status: %s", b.Status)
	line(pdf, "Total: %s", b.TotalPrice.StringFixed(2))
	line(pdf, "Payment: %s", b.PaymentStatus)

	pdf.RegisterImageOptionsReader("qr", gofpdf.ImageOptions{ImageType: "png"}, bytes.NewReader(qr))
	pdf.ImageOptions("qr", 145, yStart+5, 45, 0, false, gofpdf.ImageOptions{ImageType: "png"}, 0, "")

	pdf.SetY(yStart + 63)
	pdf.SetFont("Helvetica", "I", 10)
	pdf.Cell(0, 6, "Show this QR code to your host at check-in.")
	pdf.Ln(10)

	section(pdf, "EXPERIENCE")
	pdf.SetFont("Helvetica", "", 12)
	if exp != nil {
		line(pdf, "Title: %s", tr(exp.Title))
		line(pdf, "Duration: %d min", exp.DurationMinutes)
	}
	departure := fmt.Sprintf("%s %s", b.BookingDate, b.DepartureTime)
	if slot != nil {
		departure += " - " + slot.EndTime
	}
	line(pdf, "Departure: %s", departure)
	if slot != nil && slot.WeatherDependent {
		pdf.Ln(2)
		pdf.SetFont("Helvetica", "I", 11)
		pdf.MultiCell(0, 6, "This departure depends on the weather. Your host may reschedule it.", "", "", false)
		pdf.SetFont("Helvetica", "", 12)
	}
	pdf.Ln(4)

	if b.SpecialRequests != nil || b.DietaryRequirements != nil {
		section(pdf, "NOTES")
		pdf.SetFont("Helvetica", "", 12)
		if b.SpecialRequests != nil {
			pdf.MultiCell(0, 7, "Requests: "+tr(*b.SpecialRequests), "", "", false)
		}
		if b.DietaryRequirements != nil {
			pdf.MultiCell(0, 7, "Dietary: "+tr(*b.DietaryRequirements), "", "", false)
		}
	}

	pdf.SetDrawColor(200, 200, 200)
	pdf.Line(15, 285, 195, 285)
	pdf.SetY(288)
	pdf.SetFont("Helvetica", "I", 10)
	pdf.CellFormat(0, 8, "SeaFable water adventures", "", 0, "C", false, 0, "")

	var buf bytes.Buffer
	if err := pdf.Output(&buf); err != nil {
		return nil, fmt.Errorf("render pdf: %w", err)
	}
	return buf.Bytes(), nil
}

func line(pdf *gofpdf.Fpdf, format string, args ...any) {
	pdf.Cell(0, 8, fmt.Sprintf(format, args...))
	pdf.Ln(6)
}

func section(pdf *gofpdf.Fpdf, title string) {
	pdf.SetFont("Helvetica", "B", 14)
	pdf.SetFillColor(240, 240, 240)
	pdf.CellFormat(0, 9, title, "", 1, "L", true, 0, "")
	pdf.Ln(3)
}
