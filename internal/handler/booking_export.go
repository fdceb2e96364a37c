package handler

import (
	"fmt"

	"github.com/xuri/excelize/v2"

	"github.com/iliyamo/studio-booking/internal/mailer"
	"github.com/iliyamo/studio-booking/internal/model"
)

const (
	xlsxMIME     = "application/vnd.openxmlformats-officedocument.spreadsheetml.sheet"
	bookingSheet = "Bookings"
)

var bookingHeaders = []string{
	"ID", "Created", "Status", "Customer", "Email", "Phone",
	"Instructor", "Date", "Start", "End", "Seats", "Amount", "Comment",
}

// bookingsWorkbook lays out one row per booking.  Bookings whose user or
// session is gone keep their own columns and leave the rest blank.
func bookingsWorkbook(list []model.BookingDetail, currency string) (*excelize.File, error) {
	f := excelize.NewFile()
	index, err := f.NewSheet(bookingSheet)
	if err != nil {
		_ = f.Close()
		return nil, fmt.Errorf("create sheet: %w", err)
	}
	f.SetActiveSheet(index)
	_ = f.DeleteSheet("Sheet1")

	header, err := f.NewStyle(&excelize.Style{
		Fill:      excelize.Fill{Type: "pattern", Color: []string{"#DDEBF7"}, Pattern: 1},
		Font:      &excelize.Font{Bold: true},
		Alignment: &excelize.Alignment{Horizontal: "center"},
	})
	if err != nil {
		_ = f.Close()
		return nil, fmt.Errorf("header style: %w", err)
	}
	for i, title := range bookingHeaders {
		cell, _ := excelize.CoordinatesToCellName(i+1, 1)
		_ = f.SetCellValue(bookingSheet, cell, title)
		_ = f.SetCellStyle(bookingSheet, cell, cell, header)
	}

	for i, b := range list {
		row := i + 2
		values := []any{
			b.ID, b.CreatedAt.Format("2006-01-02 15:04"), b.Status, "", "", b.Phone,
			"", "", "", "", b.Seats, mailer.FormatAmount(b.Amount, currency), b.Comment,
		}
		if b.User != nil {
			values[3], values[4] = b.User.Name, b.User.Email
		}
		if b.Session != nil {
			values[6], values[7], values[8], values[9] = b.Session.Instructor, b.Session.Date, b.Session.StartTime, b.Session.EndTime
		}
		for col, v := range values {
			cell, _ := excelize.CoordinatesToCellName(col+1, row)
			_ = f.SetCellValue(bookingSheet, cell, v)
		}
	}

	_ = f.SetColWidth(bookingSheet, "A", "A", 8)
	_ = f.SetColWidth(bookingSheet, "B", "B", 18)
	_ = f.SetColWidth(bookingSheet, "C", "C", 12)
	_ = f.SetColWidth(bookingSheet, "D", "G", 22)
	_ = f.SetColWidth(bookingSheet, "H", "K", 12)
	_ = f.SetColWidth(bookingSheet, "L", "L", 16)
	_ = f.SetColWidth(bookingSheet, "M", "M", 40)
	return f, nil
}
