package main

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"helpconnect/internal/dynamo"
	"helpconnect/internal/identity"
	"helpconnect/internal/lifecycle"
	"helpconnect/internal/notify"
	"helpconnect/internal/server"
	"helpconnect/internal/storage"
	"helpconnect/internal/store"

	"github.com/aws/aws-sdk-go-v2/service/cognitoidentityprovider"
	"github.com/aws/aws-sdk-go-v2/service/s3"
	"github.com/aws/aws-sdk-go-v2/service/sns"
	"github.com/lestrrat-go/httprc/v3"
	"github.com/lestrrat-go/jwx/v3/jwk"
	"github.com/sirupsen/logrus"
	"github.com/urfave/cli/v2"
)

var serveCommand = &cli.Command{
	Name:   "serve",
	Usage:  "Start the HTTP server",
	Action: serve,
}

func serve(cCtx *cli.Context) error {
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	logger := logrus.New()
	logger.SetFormatter(&logrus.JSONFormatter{})

	config, err := loadConfig()
	if err != nil {
		return err
	}

	if config.Environment == "development" {
		logger.SetLevel(logrus.DebugLevel)
	}

	awsConfig, err := loadAWSConfig(ctx)
	if err != nil {
		return err
	}

	db := dynamo.NewClient(awsConfig)
	snsClient := sns.NewFromConfig(awsConfig)
	s3Client := s3.NewFromConfig(awsConfig)
	cognitoClient := cognitoidentityprovider.NewFromConfig(awsConfig)

	requestsRepo := store.NewRequestRepository(db, config.HelpRequestsTable)
	offersRepo := store.NewOfferRepository(db, config.OffersTable)
	settingsRepo := store.NewSettingRepository(db, config.SettingsTable)

	dispatcher := notify.NewDispatcher(logger, snsClient, config.NewRequestsTopicARN, config.NewOffersTopicARN)
	resolver := identity.NewResolver(cognitoClient, config.CognitoUserPoolID)
	images := storage.NewImageStorage(s3Client, config.ImageBucket, time.Duration(config.UploadURLExpiresSec)*time.Second)

	engine := lifecycle.NewEngine(logger, db, requestsRepo, offersRepo, settingsRepo, dispatcher, resolver)

	jwkCache, err := jwk.NewCache(context.Background(), httprc.NewClient())
	if err != nil {
		return fmt.Errorf("failed to initilaize jwk cache: %w", err)
	}

	jwksURL := fmt.Sprintf("%s/.well-known/jwks.json", config.CognitoIssuerURL)

	err = jwkCache.Register(context.Background(), jwksURL)
	if err != nil {
		return fmt.Errorf("failed to register cognito jwk with cache: %w", err)
	}

	verifier := server.NewCognitoVerifier(jwkCache, jwksURL, config.CognitoClientID)

	srv, err := server.New(
		config,
		logger,
		engine,
		requestsRepo,
		offersRepo,
		settingsRepo,
		images,
		dispatcher,
		verifier,
	)
	if err != nil {
		return err
	}

	go func() {
		logger.WithField("port", config.ServerPort).Infof("server starting http://localhost:%d", config.ServerPort)
		if err := srv.Start(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			logger.WithError(err).Fatal("server failed")
		}
	}()

	<-ctx.Done()
	logger.Info("shutdown signal received")

	shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()

	return srv.Stop(shutdownCtx)
}
