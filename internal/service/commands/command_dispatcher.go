package commands

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"go.uber.org/zap"

	"github.com/mamadbah2/poultryledger/internal/domain/models"
	"github.com/mamadbah2/poultryledger/internal/service/reporting"
)

// ErrInvalidArguments indicates the command payload could not be parsed.
var ErrInvalidArguments = errors.New("invalid command arguments")

// HelpText lists the supported queries.
const HelpText = "Commands:\n" +
	"stock - crates left per provider\n" +
	"digest - today's summary\n" +
	"report <provider> - AI report for a provider\n" +
	"help - this list"

// Ledger is the read side of the store used to answer stock queries.
type Ledger interface {
	Providers() []models.ProviderStock
}

// ReportingAdapter defines the reporting functions required by the dispatcher.
type ReportingAdapter interface {
	DailyDigest(ctx context.Context, day time.Time) (string, error)
	AIReport(ctx context.Context, providerID string) (string, error)
}

// Service answers read-only ledger queries. It never mutates the ledger.
type Service struct {
	ledger    Ledger
	reporting ReportingAdapter
	logger    *zap.Logger
	now       func() time.Time
}

// NewService constructs a command dispatcher.
func NewService(l Ledger, reporting ReportingAdapter, logger *zap.Logger) *Service {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Service{
		ledger:    l,
		reporting: reporting,
		logger:    logger,
		now:       time.Now,
	}
}

// HandleCommand runs cmd and returns the reply text.
func (s *Service) HandleCommand(ctx context.Context, cmd models.Command, sender string) (string, error) {
	s.logger.Debug("dispatching command", zap.String("command", string(cmd.Type)), zap.String("sender", sender), zap.Strings("args", cmd.Args))

	switch cmd.Type {
	case models.CommandStock:
		return s.stock(), nil
	case models.CommandDigest:
		return s.reporting.DailyDigest(ctx, s.now())
	case models.CommandReport:
		return s.report(ctx, cmd.Args)
	default:
		return HelpText, nil
	}
}

func (s *Service) stock() string {
	providers := s.ledger.Providers()
	if len(providers) == 0 {
		return "No providers recorded."
	}

	var b strings.Builder
	b.WriteString("Stock")
	for _, p := range providers {
		fmt.Fprintf(&b, "\n%s: %d/%d crates left", p.Name, p.RemainingFullCrates(), p.InitialFullCrates)
	}
	return b.String()
}

func (s *Service) report(ctx context.Context, args []string) (string, error) {
	if len(args) == 0 {
		return "", fmt.Errorf("%w: report needs a provider name", ErrInvalidArguments)
	}
	name := strings.Join(args, " ")

	// Names are not unique; the most recent lot wins.
	var match *models.ProviderStock
	providers := s.ledger.Providers()
	for i := range providers {
		if !strings.EqualFold(providers[i].Name, name) {
			continue
		}
		if match == nil || providers[i].CreatedAt.After(match.CreatedAt) {
			match = &providers[i]
		}
	}
	if match == nil {
		return fmt.Sprintf("No provider named %q.", name), nil
	}

	report, err := s.reporting.AIReport(ctx, match.ID)
	if errors.Is(err, reporting.ErrAIDisabled) {
		return "AI reports are not configured.", nil
	}
	return report, err
}
