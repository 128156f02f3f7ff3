package application

import (
	"context"
	"fmt"

	"go.uber.org/zap"

	"shiftmatch/domain"
)

type DocumentFormat string

const (
	FormatPDF  DocumentFormat = "pdf"
	FormatDOCX DocumentFormat = "docx"
)

// RenderedDocument is a file ready to be streamed to the client.
type RenderedDocument struct {
	FileName    string
	ContentType string
	Data        []byte
}

type LaborDocumentService struct {
	apps   ApplicationRepository
	pdf    DocumentRenderer
	docx   DocumentRenderer // nil when no template is configured
	clock  domain.Clock
	logger *zap.Logger
}

func NewLaborDocumentService(apps ApplicationRepository, pdf, docx DocumentRenderer, clock domain.Clock, logger *zap.Logger) *LaborDocumentService {
	return &LaborDocumentService{apps: apps, pdf: pdf, docx: docx, clock: clock, logger: logger}
}

// Render builds the notice for a matched application the actor may see.
func (s *LaborDocumentService) Render(ctx context.Context, actor Actor, appID uint, format DocumentFormat) (*RenderedDocument, error) {
	app, err := s.apps.Get(ctx, appID)
	if err != nil {
		return nil, err
	}
	switch actor.Type {
	case domain.AccountWorker:
		if app.UserID != actor.ID {
			return nil, domain.Forbidden("この書類を閲覧する権限がありません")
		}
	case domain.AccountFacilityAdmin:
		if app.FacilityID() != actor.FacilityID {
			return nil, domain.Forbidden("この書類を閲覧する権限がありません")
		}
	}
	if !app.Status.IsMatched() {
		return nil, domain.NewError(domain.ErrInvalidState, "DOC_NOT_MATCHED", "マッチング成立後に発行されます")
	}

	doc, err := domain.NewLaborDocument(app, s.clock.Now())
	if err != nil {
		return nil, err
	}

	var (
		renderer    DocumentRenderer
		contentType string
		ext         string
	)
	switch format {
	case FormatDOCX:
		if s.docx == nil {
			return nil, domain.ErrTemplateMissing
		}
		renderer = s.docx
		contentType = "application/vnd.openxmlformats-officedocument.wordprocessingml.document"
		ext = "docx"
	case FormatPDF, "":
		renderer = s.pdf
		contentType = "application/pdf"
		ext = "pdf"
	default:
		return nil, domain.Validation("format must be pdf or docx")
	}

	data, err := renderer.Render(doc)
	if err != nil {
		return nil, fmt.Errorf("render labor document %d: %w", appID, err)
	}
	s.logger.Debug("labor document rendered", zap.Uint("application_id", appID), zap.String("format", ext))
	return &RenderedDocument{FileName: doc.FileName(ext), ContentType: contentType, Data: data}, nil
}
