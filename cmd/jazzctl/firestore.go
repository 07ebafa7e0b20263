package main

import (
	"context"

	"jazz_picker_backend/internal/firebase"
	"jazz_picker_backend/internal/group"
	"jazz_picker_backend/internal/profile"
	"jazz_picker_backend/internal/session"
	"jazz_picker_backend/internal/setlist"
)

// firestoreServices are the Firestore-backed stores, opened once per invocation.
type firestoreServices struct {
	fb       *firebase.Service
	groups   group.Service
	setlists setlist.Service
	profiles profile.Service
	sessions session.Service
}

func (s *firestoreServices) Close() {
	s.fb.Close()
}

// openServices connects to Firestore with the configured service account.
func openServices(ctx context.Context) (*firestoreServices, error) {
	if services != nil {
		return services, nil
	}
	if err := cfg.RequireFirebase(); err != nil {
		return nil, err
	}
	fb, err := firebase.NewService(ctx, cfg, cliLog.Named("Firebase"))
	if err != nil {
		return nil, err
	}
	client, err := fb.Firestore(ctx)
	if err != nil {
		return nil, err
	}
	services = &firestoreServices{
		fb:       fb,
		groups:   group.NewService(group.NewFirestoreRepository(client), cliLog),
		setlists: setlist.NewService(setlist.NewFirestoreRepository(client), cliLog),
		profiles: profile.NewService(profile.NewFirestoreRepository(client), cliLog),
		sessions: session.NewService(session.NewFirestoreRepository(client), cliLog),
	}
	return services, nil
}
