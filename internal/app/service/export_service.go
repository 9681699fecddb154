package service

import (
	"context"
	"errors"
	"fmt"
	"regexp"
	"strings"

	"codebattle/internal/common"
	"codebattle/internal/domain/model"
	"codebattle/internal/domain/repository"

	"github.com/xuri/excelize/v2"
)

const (
	XLSXContentType   = "application/vnd.openxmlformats-officedocument.spreadsheetml.sheet"
	registrationSheet = "Registrations"
	exportDateLayout  = "2006-01-02 15:04:05"
)

var (
	exportHeader     = []interface{}{"Name", "Email", "Roll Number", "Section", "Semester", "Contact Number", "Registration Date"}
	whitespaceRun    = regexp.MustCompile(`\s+`)
	unsafeFilenameCh = strings.NewReplacer(`"`, "", `\`, "", "/", "")
)

type Export struct {
	Filename    string
	ContentType string
	Data        []byte
}

type ExportService struct {
	contestRepo       repository.ContestRepository
	participationRepo repository.ParticipationRepository
}

func NewExportService(contestRepo repository.ContestRepository, participationRepo repository.ParticipationRepository) *ExportService {
	return &ExportService{contestRepo: contestRepo, participationRepo: participationRepo}
}

// ExportRegistrations builds the roster workbook for one contest.
func (s *ExportService) ExportRegistrations(ctx context.Context, user *model.User, contestID string) (*Export, error) {
	if err := RequireCapability(user, model.CapExportRegistrations); err != nil {
		return nil, err
	}

	contest, err := s.contestRepo.FindByIDOrSlug(ctx, contestID)
	if err != nil {
		if errors.Is(err, common.ErrNotFound) {
			return nil, common.NotFound("Contest not found")
		}
		return nil, fmt.Errorf("ExportService.ExportRegistrations contest: %w", err)
	}

	regs, err := s.participationRepo.ListByContest(ctx, contest.ID)
	if err != nil {
		return nil, fmt.Errorf("ExportService.ExportRegistrations registrations: %w", err)
	}

	data, err := buildRegistrationWorkbook(regs)
	if err != nil {
		return nil, fmt.Errorf("ExportService.ExportRegistrations workbook: %w", err)
	}
	return &Export{
		Filename:    ExportFilename(contest.Title),
		ContentType: XLSXContentType,
		Data:        data,
	}, nil
}

// ExportFilename turns "Algo Cup 2025" into "Algo_Cup_2025_registrations.xlsx".
func ExportFilename(title string) string {
	name := whitespaceRun.ReplaceAllString(strings.TrimSpace(title), "_")
	return unsafeFilenameCh.Replace(name) + "_registrations.xlsx"
}

func buildRegistrationWorkbook(regs []model.RegistrationWithUser) ([]byte, error) {
	f := excelize.NewFile()
	defer f.Close()

	if err := f.SetSheetName(f.GetSheetName(0), registrationSheet); err != nil {
		return nil, err
	}
	if err := f.SetSheetRow(registrationSheet, "A1", &exportHeader); err != nil {
		return nil, err
	}

	for i, reg := range regs {
		row := []interface{}{
			reg.User.Name,
			reg.User.Email,
			orNA(reg.RollNumber),
			orNA(reg.Section),
			orNA(reg.Semester),
			orNA(reg.ContactNumber),
			reg.JoinedAt.UTC().Format(exportDateLayout),
		}
		cell, err := excelize.CoordinatesToCellName(1, i+2)
		if err != nil {
			return nil, err
		}
		if err := f.SetSheetRow(registrationSheet, cell, &row); err != nil {
			return nil, err
		}
	}

	buf, err := f.WriteToBuffer()
	if err != nil {
		return nil, err
	}
	return buf.Bytes(), nil
}

func orNA(s *string) string {
	if s == nil || strings.TrimSpace(*s) == "" {
		return "N/A"
	}
	return *s
}
