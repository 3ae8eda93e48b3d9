package audit

import (
	"context"
	"encoding/csv"
	"fmt"
	"io"
	"time"

	"github.com/xuri/excelize/v2"
)

var exportHeader = []string{"id", "action", "target_id", "target_type", "summary", "actor_id", "actor_role", "timestamp"}

func exportRow(e *Entry) []string {
	return []string{
		e.ID, e.Action, e.TargetID, e.TargetType, e.Summary,
		e.ActorID, e.ActorRole, e.Timestamp.UTC().Format(time.RFC3339),
	}
}

func (s *service) ExportCSV(ctx context.Context, w io.Writer, f Filter) error {
	entries, err := s.filtered(ctx, f)
	if err != nil {
		return err
	}

	cw := csv.NewWriter(w)
	if err := cw.Write(exportHeader); err != nil {
		return fmt.Errorf("write csv header: %w", err)
	}
	for _, e := range entries {
		if err := cw.Write(exportRow(e)); err != nil {
			return fmt.Errorf("write csv row: %w", err)
		}
	}
	cw.Flush()
	return cw.Error()
}

func (s *service) ExportXLSX(ctx context.Context, w io.Writer, f Filter) error {
	entries, err := s.filtered(ctx, f)
	if err != nil {
		return err
	}

	file := excelize.NewFile()
	defer file.Close()
	const sheet = "Audit Log"
	if err := file.SetSheetName("Sheet1", sheet); err != nil {
		return err
	}

	for col, name := range exportHeader {
		cell, err := excelize.CoordinatesToCellName(col+1, 1)
		if err != nil {
			return err
		}
		if err := file.SetCellValue(sheet, cell, name); err != nil {
			return err
		}
	}
	for rowIdx, e := range entries {
		for col, value := range exportRow(e) {
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
