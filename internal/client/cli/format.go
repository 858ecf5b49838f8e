package cli

import (
	"fmt"
	"math"
	"strconv"
	"strings"

	"github.com/dmitrijs2005/sendit/internal/client/models"
	"github.com/dmitrijs2005/sendit/internal/client/syncfield"
)

var byteUnits = []string{"Bytes", "KB", "MB", "GB", "TB", "PB", "EB", "ZB", "YB"}

// formatBytes renders a size with binary units and at most two decimals,
// dropping trailing zeros: 1536 is "1.5 KB", 1024 is "1 KB".
func formatBytes(n int64) string {
	return formatBytesDecimals(n, 2)
}

func formatBytesDecimals(n int64, decimals int) string {
	if n <= 0 {
		return "0 Bytes"
	}
	if decimals < 0 {
		decimals = 0
	}

	v := float64(n)
	i := 0
	for v >= 1024 && i < len(byteUnits)-1 {
		v /= 1024
		i++
	}

	scale := math.Pow(10, float64(decimals))
	v = math.Round(v*scale) / scale

	return strconv.FormatFloat(v, 'f', -1, 64) + " " + byteUnits[i]
}

// formatFile is one line of the file list.
func formatFile(v syncfield.FileView) string {
	line := fmt.Sprintf("%-30s %10s  ", v.Record.Name, formatBytes(v.Record.Size))

	switch v.State {
	case models.FileComplete:
		return line + v.Record.DownloadURL
	case models.FileUploading:
		return line + fmt.Sprintf("uploading %d%%", v.Progress)
	default:
		return line + string(v.State)
	}
}

// progressLine summarises the uploads in flight, or returns "" if none are.
func progressLine(views []syncfield.FileView) string {
	var parts []string
	for _, v := range views {
		if v.State == models.FileUploading {
			parts = append(parts, fmt.Sprintf("%s %d%%", v.Record.Name, v.Progress))
		}
	}
	if len(parts) == 0 {
		return ""
	}
	return "uploading: " + strings.Join(parts, ", ")
}

// filesSummary is printed when the file list changes.
func filesSummary(views []syncfield.FileView) string {
	complete, uploading := 0, 0
	for _, v := range views {
		switch v.State {
		case models.FileComplete:
			complete++
		case models.FileUploading:
			uploading++
		}
	}
	s := fmt.Sprintf("files: %d", len(views))
	if uploading > 0 {
		s += fmt.Sprintf(", %d uploading", uploading)
	}
	if complete > 0 && complete < len(views) {
		s += fmt.Sprintf(", %d ready", complete)
	}
	return s
}
