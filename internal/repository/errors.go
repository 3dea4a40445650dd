package repository

import (
	"errors"

	"github.com/jackc/pgx/v5"
)

// ErrNotFound cubre tanto filas inexistentes como filas de otro dueño;
// el caller no puede distinguir ambos casos.
var ErrNotFound = errors.New("not found")

func mapNoRows(err error) error {
	if errors.Is(err, pgx.ErrNoRows) {
		return ErrNotFound
	}
	return err
}
