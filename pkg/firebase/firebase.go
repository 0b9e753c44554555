package firebase

import (
	"context"
	"fmt"
	"os"

	firebase "firebase.google.com/go/v4"
	"firebase.google.com/go/v4/auth"
	"go.uber.org/zap"
	"google.golang.org/api/option"
)

// App bundles the Firebase app with the auth client used to verify ID tokens
// on sign-in and registration.
type App struct {
	FirebaseApp *firebase.App
	AuthClient  *auth.Client
}

// InitFirebase loads the service account at credentialsPath and builds the
// auth client. Firebase sign-in stays disabled when this is never called.
func InitFirebase(ctx context.Context, credentialsPath string, log *zap.Logger) (*App, error) {
	if credentialsPath == "" {
		return nil, fmt.Errorf("firebase credentials path not provided")
	}
	info, err := os.Stat(credentialsPath)
	if err != nil {
		return nil, fmt.Errorf("firebase credentials not readable at %s: %w", credentialsPath, err)
	}
	if info.IsDir() {
		return nil, fmt.Errorf("firebase credentials path %s is a directory", credentialsPath)
	}

	app, err := firebase.NewApp(ctx, nil, option.WithCredentialsFile(credentialsPath))
	if err != nil {
		return nil, fmt.Errorf("init firebase app: %w", err)
	}
	client, err := app.Auth(ctx)
	if err != nil {
		return nil, fmt.Errorf("init firebase auth client: %w", err)
	}

	log.Info("firebase auth client ready", zap.String("credentials", credentialsPath))
	return &App{FirebaseApp: app, AuthClient: client}, nil
}
