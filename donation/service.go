package donation

import "context"

type Service struct {
	repo *Repository
}

func NewService(repo *Repository) *Service {
	return &Service{repo: repo}
}

func (s *Service) Donate(ctx context.Context, eventID string, donorID *string, amount int64, note string) (Record, error) {
	return s.repo.Donate(ctx, eventID, donorID, amount, note)
}

func (s *Service) ListForEvent(ctx context.Context, eventID string) ([]Record, error) {
	return s.repo.ListForEvent(ctx, eventID)
}
