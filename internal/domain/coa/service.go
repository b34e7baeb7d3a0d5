package coa

import (
	"context"
	"encoding/csv"
	"fmt"
	"io"
	"strconv"
	"time"

	"github.com/google/uuid"
	"github.com/rs/zerolog/log"

	"github.com/lims/lims/internal/domain/assignment"
	"github.com/lims/lims/internal/domain/client"
	"github.com/lims/lims/internal/domain/sample"
	"github.com/lims/lims/internal/platform/notification"
)

const assembleBatchLimit = 500

// Clients resolves client records. Satisfied by *client.Service.
type Clients interface {
	GetClient(ctx context.Context, id uuid.UUID) (*client.Client, error)
}

// Samples lists a client's samples. Satisfied by *sample.Service.
type Samples interface {
	ListSamplesByClient(ctx context.Context, clientID uuid.UUID, limit, offset int) ([]*sample.Sample, int, error)
}

// Results reads the named results for a sample. Satisfied by
// *assignment.Service.
type Results interface {
	ListResultsBySample(ctx context.Context, sampleID uuid.UUID) ([]*assignment.SampleResult, error)
}

// Notifier sends templated notifications. Satisfied by
// *notification.NotificationManager.
type Notifier interface {
	SendFromTemplate(ctx context.Context, templateID string, data map[string]string, recipient string) (*notification.Notification, error)
}

type Service struct {
	certificates    CertificateRepository
	interpretations InterpretationRepository
	clients         Clients
	samples         Samples
	results         Results

	notifier Notifier
}

func NewService(certificates CertificateRepository, interpretations InterpretationRepository, clients Clients, samples Samples, results Results) *Service {
	return &Service{
		certificates:    certificates,
		interpretations: interpretations,
		clients:         clients,
		samples:         samples,
		results:         results,
	}
}

func (s *Service) SetNotifier(n Notifier) {
	s.notifier = n
}

// Assemble builds the certificate rows for a client: every named result of
// every approved sample, in sample order.
func (s *Service) Assemble(ctx context.Context, clientID uuid.UUID) ([]*CertificateRow, error) {
	if _, err := s.clients.GetClient(ctx, clientID); err != nil {
		return nil, fmt.Errorf("client not found: %w", err)
	}

	var rows []*CertificateRow
	offset := 0
	for {
		samples, total, err := s.samples.ListSamplesByClient(ctx, clientID, assembleBatchLimit, offset)
		if err != nil {
			return nil, err
		}
		for _, sm := range samples {
			if sm.Status != sample.StatusApproved {
				continue
			}
			results, err := s.results.ListResultsBySample(ctx, sm.ID)
			if err != nil {
				return nil, err
			}
			for _, res := range results {
				rows = append(rows, &CertificateRow{
					SampleCode: sm.SampleCode,
					Parameter:  res.ParameterName,
					Unit:       res.Unit,
					Method:     res.Method,
					RefLimit:   res.RefLimit,
					Value:      res.Value,
					Source:     res.Source,
				})
			}
		}
		offset += len(samples)
		if offset >= total || len(samples) == 0 {
			break
		}
	}
	return rows, nil
}

// WriteCSV streams the certificate rows as CSV.
func (s *Service) WriteCSV(w io.Writer, rows []*CertificateRow) error {
	cw := csv.NewWriter(w)
	if err := cw.Write([]string{"sample_code", "parameter", "unit", "method", "ref_limit", "value", "source"}); err != nil {
		return err
	}
	for _, row := range rows {
		record := []string{row.SampleCode, row.Parameter, row.Unit, "", "", "", row.Source}
		if row.Method != nil {
			record[3] = *row.Method
		}
		if row.RefLimit != nil {
			record[4] = *row.RefLimit
		}
		if row.Value != nil {
			record[5] = strconv.FormatFloat(*row.Value, 'f', -1, 64)
		}
		if err := cw.Write(record); err != nil {
			return err
		}
	}
	cw.Flush()
	return cw.Error()
}

// Release stores the interpretation, creates a released certificate, and
// notifies the client with the summary in the message body.
func (s *Service) Release(ctx context.Context, clientID uuid.UUID, summaryText string) (*Certificate, error) {
	if summaryText == "" {
		return nil, fmt.Errorf("summary text is required")
	}
	cl, err := s.clients.GetClient(ctx, clientID)
	if err != nil {
		return nil, fmt.Errorf("client not found: %w", err)
	}

	rows, err := s.Assemble(ctx, clientID)
	if err != nil {
		return nil, err
	}
	if len(rows) == 0 {
		return nil, fmt.Errorf("client %s has no approved results to release", cl.ClientID)
	}

	interp := &COAInterpretation{ClientID: clientID, SummaryText: summaryText}
	if err := s.interpretations.Create(ctx, interp); err != nil {
		return nil, err
	}

	seq, err := s.certificates.NextSequence(ctx, clientID)
	if err != nil {
		return nil, err
	}
	now := time.Now().UTC()
	cert := &Certificate{
		CertificateNumber: fmt.Sprintf("COA-%s-%03d", cl.ClientID, seq),
		ClientID:          clientID,
		InterpretationID:  &interp.ID,
		Status:            StatusReleased,
		ReleasedAt:        &now,
	}
	if err := s.certificates.Create(ctx, cert); err != nil {
		return nil, err
	}

	if s.notifier != nil {
		data := map[string]string{
			"certificate_number": cert.CertificateNumber,
			"client_name":        cl.Name,
			"summary":            summaryText,
		}
		if _, err := s.notifier.SendFromTemplate(ctx, "coa-released", data, cl.Email); err != nil {
			log.Warn().Err(err).Str("certificate", cert.CertificateNumber).Msg("failed to send release notification")
		}
	}
	return cert, nil
}

func (s *Service) GetCertificate(ctx context.Context, id uuid.UUID) (*Certificate, error) {
	return s.certificates.GetByID(ctx, id)
}

func (s *Service) ListCertificates(ctx context.Context, clientID uuid.UUID, limit, offset int) ([]*Certificate, int, error) {
	return s.certificates.ListByClient(ctx, clientID, limit, offset)
}

func (s *Service) CreateInterpretation(ctx context.Context, i *COAInterpretation) error {
	if i.SummaryText == "" {
		return fmt.Errorf("summary text is required")
	}
	if _, err := s.clients.GetClient(ctx, i.ClientID); err != nil {
		return fmt.Errorf("client not found: %w", err)
	}
	return s.interpretations.Create(ctx, i)
}

func (s *Service) GetInterpretation(ctx context.Context, id uuid.UUID) (*COAInterpretation, error) {
	return s.interpretations.GetByID(ctx, id)
}

func (s *Service) UpdateInterpretation(ctx context.Context, id uuid.UUID, summaryText string) (*COAInterpretation, error) {
	if summaryText == "" {
		return nil, fmt.Errorf("summary text is required")
	}
	i, err := s.interpretations.GetByID(ctx, id)
	if err != nil {
		return nil, fmt.Errorf("interpretation not found: %w", err)
	}
	i.SummaryText = summaryText
	if err := s.interpretations.Update(ctx, i); err != nil {
		return nil, err
	}
	return i, nil
}

func (s *Service) DeleteInterpretation(ctx context.Context, id uuid.UUID) error {
	return s.interpretations.Delete(ctx, id)
}

func (s *Service) ListInterpretations(ctx context.Context, clientID uuid.UUID, limit, offset int) ([]*COAInterpretation, int, error) {
	return s.interpretations.ListByClient(ctx, clientID, limit, offset)
}
