package output

import (
	"fmt"
	"io"
	"strings"
	"text/tabwriter"
	"time"

	"github.com/sdejongh/greenbox/pkg/models"
)

// HumanFormatter formats output in human-readable format
type HumanFormatter struct{}

// NewHumanFormatter creates a new human-readable formatter
func NewHumanFormatter() *HumanFormatter {
	return &HumanFormatter{}
}

// Files prints one row per file
func (f *HumanFormatter) Files(w io.Writer, files []models.FileRecord, storageURL string) error {
	if len(files) == 0 {
		_, err := fmt.Fprintln(w, "No files.")
		return err
	}

	tw := tabwriter.NewWriter(w, 0, 0, 2, ' ', 0)
	fmt.Fprintln(tw, "ID\tNAME\tSIZE\tUPDATED\tLINK")
	for _, file := range files {
		size := "-"
		if file.Size > 0 {
			size = formatBytes(file.Size)
		} else if file.SizeText != "" {
			size = file.SizeText
		}
		updated := file.UpdateTime
		if updated == "" {
			updated = "-"
		}
		fmt.Fprintf(tw, "%s\t%s\t%s\t%s\t%s\n", file.ID, file.Name, size, updated, file.DownloadURL(storageURL))
	}
	if err := tw.Flush(); err != nil {
		return err
	}

	_, err := fmt.Fprintf(w, "\n%d files\n", len(files))
	return err
}

// Tree prints the folder forest indented by depth
func (f *HumanFormatter) Tree(w io.Writer, roots []*models.FolderNode) error {
	if len(roots) == 0 {
		_, err := fmt.Fprintln(w, "No folders.")
		return err
	}

	models.WalkFolders(roots, func(node *models.FolderNode, depth int) {
		fmt.Fprintf(w, "%s%s  [%s]\n", strings.Repeat("  ", depth), node.Title, node.Identifier())
	})
	_, err := fmt.Fprintf(w, "\n%d folders\n", models.CountFolders(roots))
	return err
}

// Session prints the identity and token expiry
func (f *HumanFormatter) Session(w io.Writer, info SessionInfo) error {
	fmt.Fprintf(w, "User:     %s\n", info.Username)
	if info.Nickname != "" {
		fmt.Fprintf(w, "Nickname: %s\n", info.Nickname)
	}
	if info.ID != "" {
		fmt.Fprintf(w, "ID:       %s\n", info.ID)
	}
	if info.Server != "" {
		fmt.Fprintf(w, "Server:   %s\n", info.Server)
	}
	if !info.SavedAt.IsZero() {
		fmt.Fprintf(w, "Since:    %s\n", info.SavedAt.Local().Format(time.RFC1123))
	}
	if !info.Expires.IsZero() {
		state := "in " + formatDuration(time.Until(info.Expires))
		if info.Expired {
			state = "expired"
		}
		fmt.Fprintf(w, "Expires:  %s (%s)\n", info.Expires.Local().Format(time.RFC1123), state)
	}
	return nil
}

// Report prints a summary of a command
func (f *HumanFormatter) Report(w io.Writer, report *models.OperationReport) error {
	ok := len(report.Items) - len(report.Errors)

	fmt.Fprintf(w, "\n%s completed in %s\n", capitalize(report.Command), report.Duration.Round(time.Millisecond))
	fmt.Fprintf(w, "  Files:   %d ok, %d failed\n", ok, len(report.Errors))
	if report.BytesTransferred > 0 {
		fmt.Fprintf(w, "  Data:    %s\n", formatBytes(report.BytesTransferred))
		if report.Duration.Seconds() > 0 {
			avgSpeed := float64(report.BytesTransferred) / report.Duration.Seconds()
			fmt.Fprintf(w, "  Speed:   %s/s\n", formatBytes(int64(avgSpeed)))
		}
	}
	fmt.Fprintf(w, "Status: %s\n", report.Status)

	if len(report.Errors) > 0 {
		fmt.Fprintf(w, "\nErrors:\n")
		for _, e := range report.Errors {
			if e.Item == "" {
				fmt.Fprintf(w, "  %s\n", e.Error)
				continue
			}
			fmt.Fprintf(w, "  %s: %s\n", e.Item, e.Error)
		}
	}
	return nil
}

// Name returns the formatter name
func (f *HumanFormatter) Name() string {
	return "human"
}

func capitalize(s string) string {
	if s == "" {
		return "Operation"
	}
	return strings.ToUpper(s[:1]) + s[1:]
}

// formatBytes formats bytes in human-readable format
func formatBytes(bytes int64) string {
	const unit = 1024
	if bytes < unit {
		return fmt.Sprintf("%d B", bytes)
	}
	div, exp := int64(unit), 0
	for n := bytes / unit; n >= unit; n /= unit {
		div *= unit
		exp++
	}
	return fmt.Sprintf("%.1f %ciB", float64(bytes)/float64(div), "KMGTPE"[exp])
}

// formatDuration formats duration in human-readable format
func formatDuration(d time.Duration) string {
	if d < 0 {
		d = -d
	}
	if d < time.Minute {
		return fmt.Sprintf("%ds", int(d.Seconds()))
	}
	if d < time.Hour {
		return fmt.Sprintf("%dm%ds", int(d.Minutes()), int(d.Seconds())%60)
	}
	return fmt.Sprintf("%dh%dm", int(d.Hours()), int(d.Minutes())%60)
}
