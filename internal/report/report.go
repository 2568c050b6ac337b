// Package report exports a player's progress as a spreadsheet.
package report

import (
	"fmt"
	"io"
	"slices"

	"github.com/xuri/excelize/v2"

	"github.com/p-n-ai/pai-kids/internal/domain"
	"github.com/p-n-ai/pai-kids/internal/game"
	"github.com/p-n-ai/pai-kids/internal/progress"
)

// Sheet names in the workbook.
const (
	SheetSummary  = "Summary"
	SheetStickers = "Stickers"
	SheetHistory  = "History"
)

// Write renders snap as an .xlsx workbook with summary, sticker book and
// answer history sheets.
func Write(w io.Writer, snap game.Snapshot, catalog *progress.Catalog) error {
	f := excelize.NewFile()
	defer f.Close()

	if err := f.SetSheetName("Sheet1", SheetSummary); err != nil {
		return fmt.Errorf("rename sheet: %w", err)
	}
	for _, name := range []string{SheetStickers, SheetHistory} {
		if _, err := f.NewSheet(name); err != nil {
			return fmt.Errorf("create sheet %s: %w", name, err)
		}
	}

	header, err := f.NewStyle(&excelize.Style{Font: &excelize.Font{Bold: true}})
	if err != nil {
		return fmt.Errorf("create style: %w", err)
	}

	if err := writeRows(f, SheetSummary, summaryHeaderRow, header, summaryRows(snap)); err != nil {
		return err
	}
	if err := writeRows(f, SheetStickers, 1, header, stickerRows(snap, catalog)); err != nil {
		return err
	}
	if err := writeRows(f, SheetHistory, 1, header, historyRows(snap)); err != nil {
		return err
	}

	if _, err := f.WriteTo(w); err != nil {
		return fmt.Errorf("write workbook: %w", err)
	}
	return nil
}

// summaryHeaderRow is the per-subject table header below the totals block.
const summaryHeaderRow = 7

func summaryRows(snap game.Snapshot) [][]any {
	rows := [][]any{
		{"Player", snap.Profile.Greeting()},
		{"Profile", string(snap.Profile)},
		{"Score", snap.State.Score},
		{"Streak", snap.State.Streak},
		{"Stickers", len(snap.State.Unlocked)},
		{},
		{"Subject", "Correct", "Answered"},
	}
	for _, subject := range domain.Subjects {
		answered := 0
		for _, a := range snap.State.History {
			if a.Subject == subject {
				answered++
			}
		}
		rows = append(rows, []any{string(subject), snap.State.CorrectCount(subject), answered})
	}
	rows = append(rows, []any{"Total", snap.State.CorrectCount(""), len(snap.State.History)})
	return rows
}

func stickerRows(snap game.Snapshot, catalog *progress.Catalog) [][]any {
	rows := [][]any{{"Sticker", "Name", "Category", "Description", "Unlocked"}}
	for _, b := range catalog.Badges() {
		unlocked := "no"
		if slices.Contains(snap.State.Unlocked, b.ID) {
			unlocked = "yes"
		}
		rows = append(rows, []any{b.Icon, b.Name, string(b.Category), b.Description, unlocked})
	}
	return rows
}

func historyRows(snap game.Snapshot) [][]any {
	rows := [][]any{{"#", "Subject", "Result"}}
	for i, a := range snap.State.History {
		result := "wrong"
		if a.Correct {
			result = "correct"
		}
		rows = append(rows, []any{i + 1, string(a.Subject), result})
	}
	return rows
}

// writeRows writes rows from A1 down and bolds headerRow (1-based).
func writeRows(f *excelize.File, sheet string, headerRow, header int, rows [][]any) error {
	for i, row := range rows {
		if len(row) == 0 {
			continue
		}
		cell, err := excelize.CoordinatesToCellName(1, i+1)
		if err != nil {
			return fmt.Errorf("cell name: %w", err)
		}
		if err := f.SetSheetRow(sheet, cell, &row); err != nil {
			return fmt.Errorf("write %s row %d: %w", sheet, i+1, err)
		}
	}

	last, err := excelize.CoordinatesToCellName(len(rows[headerRow-1]), headerRow)
	if err != nil {
		return fmt.Errorf("cell name: %w", err)
	}
	if err := f.SetCellStyle(sheet, fmt.Sprintf("A%d", headerRow), last, header); err != nil {
		return fmt.Errorf("style %s header: %w", sheet, err)
	}
	return nil
}
