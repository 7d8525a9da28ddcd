package services

import (
	"context"

	firebase "firebase.google.com/go/v4"
	"firebase.google.com/go/v4/messaging"
	"google.golang.org/api/option"
)

// InitFirebase initializes the Firebase Admin SDK and returns a messaging
// client used to push voucher events to the staff topic
func InitFirebase(credPath string) (*messaging.Client, error) {
	opt := option.WithCredentialsFile(credPath)
	app, err := firebase.NewApp(context.Background(), nil, opt)
	if err != nil {
		return nil, err
	}
	return app.Messaging(context.Background())
}
