package logconv

import (
	"fmt"
	"io"
	"time"

	api "github.com/macrat/scout/lib-scout"
	"github.com/xuri/excelize/v2"
)

const (
	xlsxSheet   = "snapshots"
	xlsxMaxRows = 100000
)

func excelPos(x, y int) string {
	pos, err := excelize.CoordinatesToCellName(x+1, y+1)
	if err != nil {
		panic(err)
	}
	return pos
}

func ToXlsx(w io.Writer, rows []Row, createdAt time.Time) error {
	xlsx := excelize.NewFile()
	defer xlsx.Close()
	xlsx.SetSheetName("Sheet1", xlsxSheet)

	xlsx.SetAppProps(&excelize.AppProperties{
		Application: "Scout",
	})
	xlsx.SetDocProps(&excelize.DocProperties{
		Created:        createdAt.Format(time.RFC3339),
		Modified:       createdAt.Format(time.RFC3339),
		Creator:        "Scout",
		LastModifiedBy: "Scout",
	})

	zone, _ := createdAt.Zone()
	for i, h := range []string{fmt.Sprintf("time (%s)", zone), "target", "url", "status", "status code", "response time", "message"} {
		xlsx.SetCellStr(xlsxSheet, excelPos(i, 0), h)
	}

	colors := map[api.Status]string{
		api.StatusOK:    "89C923",
		api.StatusError: "FF2D00",
		api.StatusIdle:  "C0C0C0",
	}

	styles := make(map[string]int)
	style := func(color string, border int, format *string) int {
		key := fmt.Sprintf("%s/%d/%v", color, border, format != nil)
		if format != nil {
			key += "/" + *format
		}
		if id, ok := styles[key]; ok {
			return id
		}
		id, _ := xlsx.NewStyle(&excelize.Style{
			CustomNumFmt: format,
			Border:       []excelize.Border{{Type: "bottom", Style: border, Color: color}},
		})
		styles[key] = id
		return id
	}

	datefmt := "yyyy-mm-dd hh:mm:ss"
	latencyfmt := "#,##0.000 \"ms\""

	for i, r := range rows {
		if i >= xlsxMaxRows {
			break
		}
		y := i + 1
		color := colors[r.Status]

		setValue := func(x int, value any, border int, format *string) {
			pos := excelPos(x, y)
			xlsx.SetCellValue(xlsxSheet, pos, value)
			xlsx.SetCellStyle(xlsxSheet, pos, pos, style(color, border, format))
		}

		setValue(0, r.Timestamp.In(createdAt.Location()), 1, &datefmt)
		setValue(1, r.TargetName, 1, nil)
		setValue(2, r.URL, 1, nil)
		setValue(3, r.Status.String(), 5, nil)
		if r.StatusCode != 0 {
			setValue(4, r.StatusCode, 1, nil)
		} else {
			setValue(4, "", 1, nil)
		}
		if r.ResponseTime > 0 {
			setValue(5, r.ResponseTimeMS(), 1, &latencyfmt)
		} else {
			setValue(5, "", 1, nil)
		}
		setValue(6, r.ErrMessage, 1, nil)
	}

	if err := xlsx.SetPanes(xlsxSheet, &excelize.Panes{
		Freeze:      true,
		YSplit:      1,
		TopLeftCell: "A2",
		ActivePane:  "bottomLeft",
	}); err != nil {
		return err
	}

	xlsx.SetColWidth(xlsxSheet, "A", "A", 20)
	xlsx.SetColWidth(xlsxSheet, "B", "C", 30)
	xlsx.SetColWidth(xlsxSheet, "F", "F", 15)
	xlsx.SetColWidth(xlsxSheet, "G", "G", 40)

	xlsx.AutoFilter(xlsxSheet, "A1:G1", nil)

	return xlsx.Write(w)
}
