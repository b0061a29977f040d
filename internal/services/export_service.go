package services

import (
	"bytes"
	"fmt"
	"strings"

	"github.com/Jeelislive/openRank-Backend/internal/models"
	"github.com/Jeelislive/openRank-Backend/internal/repositories"
	"github.com/xuri/excelize/v2"
)

const exportSheetName = "Rankings"

// ExportService renders a filtered ranking view as an XLSX workbook.
type ExportService struct {
	developerRepo *repositories.DeveloperRepository
}

func NewExportService(developerRepo *repositories.DeveloperRepository) *ExportService {
	return &ExportService{developerRepo: developerRepo}
}

// ExportRankings writes up to limit ranked developers under the given
// filters into an XLSX buffer.
func (s *ExportService) ExportRankings(filters models.RankingFilters, limit int) (*bytes.Buffer, error) {
	developers, _, maxScore, err := s.developerRepo.GetRanked(limit, 0, filters)
	if err != nil {
		return nil, err
	}

	f := excelize.NewFile()
	defer f.Close()

	index, err := f.NewSheet(exportSheetName)
	if err != nil {
		return nil, err
	}
	f.SetActiveSheet(index)
	if err := f.DeleteSheet("Sheet1"); err != nil {
		return nil, err
	}

	headers := []string{
		"Rank", "Username", "Name", "Country", "City", "Company",
		"Impact Score", "Normalized Score", "Followers", "Public Repos",
		"Stars Received", "Years Active", "Top Languages",
	}
	for col, header := range headers {
		cell, err := excelize.CoordinatesToCellName(col+1, 1)
		if err != nil {
			return nil, err
		}
		if err := f.SetCellValue(exportSheetName, cell, header); err != nil {
			return nil, err
		}
	}

	for row, dev := range developers {
		values := []interface{}{
			row + 1,
			dev.Username,
			strOrEmpty(dev.DisplayName),
			strOrEmpty(dev.Country),
			strOrEmpty(dev.City),
			strOrEmpty(dev.Company),
			fmt.Sprintf("%.2f", dev.FinalImpactScore),
			fmt.Sprintf("%.2f", NormalizeScore(dev.FinalImpactScore, maxScore)),
			dev.Followers,
			dev.PublicRepoCount,
			dev.TotalStarsReceived,
			fmt.Sprintf("%.1f", dev.YearsActive),
			strings.Join(dev.TopLanguages, ", "),
		}
		for col, value := range values {
			cell, err := excelize.CoordinatesToCellName(col+1, row+2)
			if err != nil {
				return nil, err
			}
			if err := f.SetCellValue(exportSheetName, cell, value); err != nil {
				return nil, err
			}
		}
	}

	return f.WriteToBuffer()
}

func strOrEmpty(s *string) string {
	if s == nil {
		return ""
	}
	return *s
}
