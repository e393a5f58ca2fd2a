package checker

import (
	"context"
	"fmt"

	"github.com/jacobarthurs/pgreview/internal/livedb"
	"github.com/jacobarthurs/pgreview/internal/models"
)

// Source is a live target database.
type Source interface {
	FetchPlan(ctx context.Context, sql string) (string, error)
	FetchStatements(ctx context.Context, query string) ([]string, error)
	Ping(ctx context.Context) error
}

// Sources opens the Source for a configured target.
type Sources interface {
	Open(ctx context.Context, t *models.Target) (Source, error)
}

// LiveSources opens targets through a pool manager, decrypting the stored
// password first.
type LiveSources struct {
	Manager *livedb.Manager
	Cipher  Decrypter
}

func (l *LiveSources) Open(ctx context.Context, t *models.Target) (Source, error) {
	password, err := l.Cipher.Decrypt(t.Password)
	if err != nil {
		return nil, fmt.Errorf("password of target %q: %w", t.Name, err)
	}

	src, err := l.Manager.Source(ctx, t.ID, livedb.ConnConfig{
		Host:     t.Host,
		Port:     t.Port,
		Database: t.Database,
		User:     t.Username,
		Password: password,
	})
	if err != nil {
		return nil, err
	}
	return src, nil
}

// Evict drops the pool of a target whose settings changed.
func (l *LiveSources) Evict(id int64) {
	l.Manager.Evict(id)
}

// Pools reports how many target pools are open.
func (l *LiveSources) Pools() int {
	return l.Manager.Len()
}
