// package formatter provides functions to export generated playlists to various formats (CSV, Markdown, plain text)
package formatter

import (
	"bytes"
	"encoding/csv"
	"encoding/json"
	"fmt"
	"os"
	"sort"
	"strconv"
	"strings"

	"github.com/Jack-Penn/AlgoRhythms/internal/models"
	"github.com/Jack-Penn/AlgoRhythms/internal/scoring"
)

// StrategyOrder returns a final result's strategy keys in display order: the
// weighted selection first, the kd-tree selection second, anything else
// alphabetically after.
func StrategyOrder(final *models.FinalResult) []string {
	var order []string
	for _, key := range []string{models.StrategyWeighted, models.StrategyKDTree} {
		if _, ok := final.Playlists[key]; ok {
			order = append(order, key)
		}
	}

	var rest []string
	for key := range final.Playlists {
		if key != models.StrategyWeighted && key != models.StrategyKDTree {
			rest = append(rest, key)
		}
	}
	sort.Strings(rest)

	return append(order, rest...)
}

// StrategyTitle maps a strategy key to its display heading. Unknown keys pass
// through unchanged.
func StrategyTitle(strategy string) string {
	switch strategy {
	case models.StrategyWeighted:
		return "Weighted Ranking"
	case models.StrategyKDTree:
		return "KD-Tree Neighbors"
	default:
		return strategy
	}
}

// Title builds the display title for an exported run, matching the name the
// engine gives playlists it publishes to the provider.
func Title(mood, activity string) string {
	parts := []string{"AlgoRhythms"}
	if m := strings.TrimSpace(mood); m != "" {
		parts = append(parts, m)
	}
	if a := strings.TrimSpace(activity); a != "" {
		parts = append(parts, a)
	}
	return strings.Join(parts, " ") + " Mix"
}

// ExportToCSV converts a FinalResult to CSV format with columns: Strategy, Rank, ID, Name, Artist, Score
func ExportToCSV(final *models.FinalResult) ([]byte, error) {
	var buf bytes.Buffer
	writer := csv.NewWriter(&buf)

	headers := []string{"Strategy", "Rank", "ID", "Name", "Artist", "Score"}
	if err := writer.Write(headers); err != nil {
		return nil, fmt.Errorf("failed to write CSV headers: %w", err)
	}

	for _, strategy := range StrategyOrder(final) {
		for i, track := range final.Playlists[strategy].Tracks {
			record := []string{
				strategy,
				strconv.Itoa(i + 1),
				track.ID,
				track.Name,
				track.Artist,
				strconv.FormatFloat(track.Score, 'f', 2, 64),
			}
			if err := writer.Write(record); err != nil {
				return nil, fmt.Errorf("failed to write CSV record: %w", err)
			}
		}
	}

	writer.Flush()
	if err := writer.Error(); err != nil {
		return nil, fmt.Errorf("CSV writer error: %w", err)
	}

	return buf.Bytes(), nil
}

// ExportToMarkdown converts a FinalResult to Markdown format with one section per strategy
func ExportToMarkdown(final *models.FinalResult, title string) ([]byte, error) {
	var buf bytes.Buffer

	buf.WriteString(fmt.Sprintf("# %s\n\n", title))

	if final.PlaylistID != "" {
		buf.WriteString(fmt.Sprintf("**Spotify playlist**: %s\n\n", final.PlaylistID))
	}

	for _, strategy := range StrategyOrder(final) {
		playlist := final.Playlists[strategy]

		buf.WriteString(fmt.Sprintf("## %s\n\n", StrategyTitle(strategy)))
		buf.WriteString(fmt.Sprintf("**Tracks**: %d\n", len(playlist.Tracks)))
		buf.WriteString(fmt.Sprintf("**Generated in**: %s\n\n", scoring.FormatMS(playlist.GenerationTime)))

		for i, track := range playlist.Tracks {
			scorePart := ""
			if track.Score != 0 {
				scorePart = fmt.Sprintf(" [%.1f]", track.Score)
			}
			buf.WriteString(fmt.Sprintf("%d. %s - %s%s\n", i+1, track.Artist, track.Name, scorePart))
		}
		buf.WriteString("\n")
	}

	return buf.Bytes(), nil
}

// ExportToText converts a FinalResult to plain text format
func ExportToText(final *models.FinalResult, title string) ([]byte, error) {
	var buf bytes.Buffer

	buf.WriteString(fmt.Sprintf("Playlist: %s\n", title))
	if final.PlaylistID != "" {
		buf.WriteString(fmt.Sprintf("Spotify playlist: %s\n", final.PlaylistID))
	}

	for _, strategy := range StrategyOrder(final) {
		playlist := final.Playlists[strategy]

		buf.WriteString(fmt.Sprintf("\n%s (%d tracks)\n", StrategyTitle(strategy), len(playlist.Tracks)))
		for i, track := range playlist.Tracks {
			buf.WriteString(fmt.Sprintf("%d. %s - %s\n", i+1, track.Artist, track.Name))
		}
	}

	return buf.Bytes(), nil
}

// ToSummaryJSON generates a JSON representation of a run's shape (without track listings)
func ToSummaryJSON(final *models.FinalResult) ([]byte, error) {
	summary := make(map[string]any, len(final.Playlists)+1)
	for strategy, playlist := range final.Playlists {
		summary[strategy] = map[string]any{
			"tracks":          len(playlist.Tracks),
			"generation_time": playlist.GenerationTime,
		}
	}
	if final.PlaylistID != "" {
		summary["playlist_id"] = final.PlaylistID
	}

	data, err := json.MarshalIndent(summary, "", "  ")
	if err != nil {
		return nil, fmt.Errorf("failed to marshal summary: %w", err)
	}
	return data, nil
}

// CSVExportResult contains the paths of files created by WriteCSVExport
type CSVExportResult struct {
	TracksFile  string
	SummaryFile string
}

// WriteCSVExport exports a run to CSV format with an accompanying summary JSON file.
//
// Defaults to the provider playlist ID as the base filename (or "algorhythms"
// when no playlist was created) & creates {base}_tracks.csv and {base}_summary.json
func WriteCSVExport(final *models.FinalResult, baseFilepath string) (*CSVExportResult, error) {
	if baseFilepath == "" {
		baseFilepath = exportBase(final)
	}

	csvData, err := ExportToCSV(final)
	if err != nil {
		return nil, fmt.Errorf("failed to generate CSV: %w", err)
	}

	tracksFile := baseFilepath + "_tracks.csv"
	if err := os.WriteFile(tracksFile, csvData, 0644); err != nil {
		return nil, fmt.Errorf("failed to write CSV file: %w", err)
	}

	summaryJSON, err := ToSummaryJSON(final)
	if err != nil {
		return nil, fmt.Errorf("failed to generate summary JSON: %w", err)
	}

	summaryFile := baseFilepath + "_summary.json"
	if err := os.WriteFile(summaryFile, summaryJSON, 0644); err != nil {
		return nil, fmt.Errorf("failed to write summary file: %w", err)
	}

	return &CSVExportResult{
		TracksFile:  tracksFile,
		SummaryFile: summaryFile,
	}, nil
}

// MarkdownExportResult contains information about files created by WriteMarkdownExport
type MarkdownExportResult struct {
	Directory string
	Files     []string
}

// WriteMarkdownExport exports a run to Markdown format in a dedicated directory.
//
// Directory name defaults to the provider playlist ID (or "algorhythms").
// Creates a directory structure: {dir}/README.md and {dir}/summary.json
func WriteMarkdownExport(final *models.FinalResult, outputDir string, title string) (*MarkdownExportResult, error) {
	if outputDir == "" {
		outputDir = exportBase(final)
	}

	if err := os.MkdirAll(outputDir, 0755); err != nil {
		return nil, fmt.Errorf("failed to create directory: %w", err)
	}

	result := &MarkdownExportResult{
		Directory: outputDir,
		Files:     []string{},
	}

	mdData, err := ExportToMarkdown(final, title)
	if err != nil {
		return nil, fmt.Errorf("failed to generate Markdown: %w", err)
	}

	mdFile := fmt.Sprintf("%s/README.md", outputDir)
	if err := os.WriteFile(mdFile, mdData, 0644); err != nil {
		return nil, fmt.Errorf("failed to write Markdown file: %w", err)
	}
	result.Files = append(result.Files, mdFile)

	summaryJSON, err := ToSummaryJSON(final)
	if err != nil {
		return nil, fmt.Errorf("failed to generate summary JSON: %w", err)
	}

	summaryFile := fmt.Sprintf("%s/summary.json", outputDir)
	if err := os.WriteFile(summaryFile, summaryJSON, 0644); err != nil {
		return nil, fmt.Errorf("failed to write summary file: %w", err)
	}
	result.Files = append(result.Files, summaryFile)

	return result, nil
}

// WriteTextExport exports a run to plain text format.
//
// Defaults to {base}_tracks.txt as the filename.
func WriteTextExport(final *models.FinalResult, filepath string, title string) (string, error) {
	if filepath == "" {
		filepath = fmt.Sprintf("%s_tracks.txt", exportBase(final))
	}

	textData, err := ExportToText(final, title)
	if err != nil {
		return "", fmt.Errorf("failed to generate text: %w", err)
	}

	if err := os.WriteFile(filepath, textData, 0644); err != nil {
		return "", fmt.Errorf("failed to write text file: %w", err)
	}

	return filepath, nil
}

// exportBase derives a default filename base from the run, preferring the
// provider playlist id when one exists.
func exportBase(final *models.FinalResult) string {
	if final.PlaylistID != "" {
		return final.PlaylistID
	}
	return "algorhythms"
}
