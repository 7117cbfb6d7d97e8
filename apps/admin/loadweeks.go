package main

import (
	"context"
	"encoding/csv"
	"fmt"
	"io"
	"strconv"
	"time"

	"github.com/pkg/errors"

	"github.com/lingora/backend/core/curriculum"
)

// loadWeeks imports program weeks from CSV data of the form
// week_number,level,title,description. A header row is skipped.
// Weeks that already exist are left untouched.
func (cli *commandLine) loadWeeks(r io.Reader, levelOverride string) (int, error) {
	ctx := context.Background()
	now := time.Now().UTC()

	reader := csv.NewReader(r)
	reader.FieldsPerRecord = -1

	var count int
	for line := 1; ; line++ {
		record, err := reader.Read()
		if err == io.EOF {
			return count, nil
		}
		if err != nil {
			return count, err
		}
		if len(record) < 3 {
			return count, fmt.Errorf("line %d: expected week_number,level,title[,description]", line)
		}

		weekNum, err := strconv.Atoi(record[0])
		if err != nil {
			if line == 1 {
				continue // header row
			}
			return count, fmt.Errorf("line %d: week_number must be a number (got %q)", line, record[0])
		}

		nw := curriculum.NewWeek{
			WeekNumber: weekNum,
			Level:      record[1],
			Title:      record[2],
		}
		if len(record) > 3 {
			nw.Description = record[3]
		}
		if levelOverride != "" {
			nw.Level = levelOverride
		}

		if _, err = cli.currSvc.CreateWeek(ctx, nw, now); err != nil {
			if errors.Cause(err) == curriculum.ErrWeekExists {
				continue
			}
			return count, fmt.Errorf("line %d: %v", line, err)
		}
		count++
	}
}
