package repository

import (
	"context"
	"errors"

	"cstats-bot/internal/domain"
)

var ErrBindingNotFound = errors.New("binding not found")

// BindingRepository stores at most one PlayerRecord per chat user id.
type BindingRepository interface {
	Get(ctx context.Context, chatUserID string) (*domain.PlayerRecord, error)
	// Put replaces any previous record of the same chat user.
	Put(ctx context.Context, record domain.PlayerRecord) error
	List(ctx context.Context) ([]domain.PlayerRecord, error)
}

// storedBinding is the value layout shared by the json and redis drivers.
type storedBinding struct {
	Name   string `json:"name"`
	Domain string `json:"domain"`
	UUID   string `json:"uuid"`
}

func toStored(r domain.PlayerRecord) storedBinding {
	return storedBinding{Name: r.PlayerName, Domain: r.Domain, UUID: r.InternalUserID}
}

func (b storedBinding) record(chatUserID string) domain.PlayerRecord {
	return domain.PlayerRecord{
		ChatUserID:     chatUserID,
		PlayerName:     b.Name,
		Domain:         b.Domain,
		InternalUserID: b.UUID,
	}
}
