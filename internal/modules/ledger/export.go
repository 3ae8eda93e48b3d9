package ledger

import (
	"context"
	"encoding/csv"
	"fmt"
	"io"
	"strconv"
	"time"

	"github.com/xuri/excelize/v2"
)

var csvHeader = []string{
	"id", "catalog_item", "quantity", "status", "requested_by", "requested_at",
	"assigned_to", "urgent", "city", "state", "tracking_info", "updated_at",
}

func csvRow(r *Request) []string {
	assignedTo := ""
	if r.AssignedTo != nil {
		assignedTo = *r.AssignedTo
	}
	return []string{
		r.ID.String(),
		r.CatalogItemName,
		strconv.Itoa(r.Quantity),
		string(r.Status),
		r.RequestedBy,
		r.RequestedAt.UTC().Format(time.RFC3339),
		assignedTo,
		strconv.FormatBool(r.Urgent),
		r.City,
		r.State,
		r.TrackingInfo,
		r.UpdatedAt.UTC().Format(time.RFC3339),
	}
}

func (s *service) ExportCSV(ctx context.Context, w io.Writer, f ListFilter) error {
	requests, err := s.List(ctx, f)
	if err != nil {
		return err
	}

	cw := csv.NewWriter(w)
	if err := cw.Write(csvHeader); err != nil {
		return fmt.Errorf("write csv header: %w", err)
	}
	for _, r := range requests {
		if err := cw.Write(csvRow(r)); err != nil {
			return fmt.Errorf("write csv row: %w", err)
		}
	}
	cw.Flush()
	return cw.Error()
}

func (s *service) ExportXLSX(ctx context.Context, w io.Writer, f ListFilter) error {
	requests, err := s.List(ctx, f)
	if err != nil {
		return err
	}

	file := excelize.NewFile()
	defer file.Close()
	const sheet = "Requests"
	if err := file.SetSheetName("Sheet1", sheet); err != nil {
		return err
	}

	for col, name := range csvHeader {
		cell, err := excelize.CoordinatesToCellName(col+1, 1)
		if err != nil {
			return err
		}
		if err := file.SetCellValue(sheet, cell, name); err != nil {
			return err
		}
	}
	for rowIdx, r := range requests {
		for col, value := range csvRow(r) {
			cell, err := excelize.CoordinatesToCellName(col+1, rowIdx+2)
			if err != nil {
				return err
			}
			if err := file.SetCellValue(sheet, cell, value); err != nil {
				return err
			}
		}
	}

	return file.Write(w)
}
