package services

import "errors"

// ErrNotFound signalisiert, dass eine angeforderte Ressource nicht existiert.
// Die API-Schicht bildet diesen Fehler auf 404 ab, alles andere auf 500.
var ErrNotFound = errors.New("not found")
