package main

import (
	"context"
	"errors"
	"net/http"
	"os"
	"os/signal"
	"story-video-pipeline/application/ports/outbound"
	"story-video-pipeline/application/services"
	"story-video-pipeline/config"
	"story-video-pipeline/infrastructure/adapters"
	"story-video-pipeline/infrastructure/gin_interface/controllers"
	"story-video-pipeline/infrastructure/workerpool"
	"story-video-pipeline/middleware"
	"syscall"
	"time"

	"github.com/aws/aws-sdk-go/aws"
	"github.com/aws/aws-sdk-go/aws/session"
	"github.com/aws/aws-sdk-go/service/dynamodb"
	"github.com/aws/aws-sdk-go/service/s3"
	"github.com/gin-gonic/gin"
	"github.com/joho/godotenv"
	"github.com/rs/zerolog/log"
	"golang.org/x/sync/errgroup"
)

const shutdownTimeout = 30 * time.Second

func main() {
	if err := godotenv.Load(); err != nil && !errors.Is(err, os.ErrNotExist) {
		log.Fatal().Err(err).Msg("Failed to load .env file")
	}

	serverConfig := config.GetServerConfig()
	zeroLogger := adapters.NewZerologWrapper(serverConfig.LogLevel, serverConfig.LogFormat)

	poolConfig, err := config.GetPoolSetConfig()
	if err != nil {
		log.Fatal().Err(err).Msg("Failed to get pool config")
	}

	streamingConfig, err := config.GetStreamingConfig()
	if err != nil {
		log.Fatal().Err(err).Msg("Failed to get streaming config")
	}

	dynamoConfig, err := config.GetDynamoConfig()
	if err != nil {
		log.Fatal().Err(err).Msg("Failed to get dynamo config")
	}

	s3Config, err := config.GetS3Config()
	if err != nil {
		log.Fatal().Err(err).Msg("Failed to get s3 config")
	}

	synthesisConfig, err := config.GetSynthesisConfig()
	if err != nil {
		log.Fatal().Err(err).Msg("Failed to get synthesis config")
	}

	imageConfig, err := config.GetImageServiceConfig()
	if err != nil {
		log.Fatal().Err(err).Msg("Failed to get image service config")
	}

	videoDBConfig, err := config.GetVideoDBConfig()
	if err != nil {
		log.Fatal().Err(err).Msg("Failed to get video db config")
	}

	assemblyConfig, err := config.GetAssemblyConfig()
	if err != nil {
		log.Fatal().Err(err).Msg("Failed to get assembly config")
	}

	kafkaConfig := config.GetKafkaConfig()

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	sess := session.Must(session.NewSessionWithOptions(session.Options{
		Config:            aws.Config{Region: aws.String(s3Config.Region)},
		SharedConfigState: session.SharedConfigEnable,
	}))

	memoryStories := adapters.NewMemoryStoryStore()
	if dynamoConfig.StorySeedFile != "" {
		seeds, err := adapters.NewFileStorySeedReader(zeroLogger).Read(dynamoConfig.StorySeedFile)
		if err != nil {
			log.Fatal().Err(err).Msg("Failed to read story seed file")
		}
		for _, story := range seeds {
			memoryStories.Put(story)
		}
	}

	var (
		storyStore  outbound.StoryStorePort  = memoryStories
		statusStore outbound.StatusStorePort = adapters.NewMemoryStatusStore(dynamoConfig.StatusTTL)
	)
	if dynamoConfig.NeedsSession() {
		dynamoClient := dynamodb.New(sess)
		if dynamoConfig.StoryStore == config.BackendDynamo {
			storyStore = adapters.NewDynamoStoryStore(zeroLogger, dynamoClient, dynamoConfig)
		}
		if dynamoConfig.StatusStore == config.BackendDynamo {
			statusStore = adapters.NewDynamoStatusStore(zeroLogger, dynamoClient, dynamoConfig)
		}
	}

	objectStorage := adapters.NewS3ObjectStorage(zeroLogger, s3.New(sess), s3Config)

	videoDB, err := adapters.OpenVideoDB(ctx, videoDBConfig)
	if err != nil {
		log.Fatal().Err(err).Msg("Failed to open video database")
	}
	defer videoDB.Close()
	videoRepository := adapters.NewSQLVideoRepository(videoDB, zeroLogger)

	var stepPublisher outbound.StepEventPublisherPort = adapters.NewNoopStepPublisher()
	if kafkaConfig.Enabled() {
		kafkaPublisher := adapters.NewKafkaStepPublisher(kafkaConfig, zeroLogger)
		defer kafkaPublisher.Close()
		stepPublisher = kafkaPublisher
	}

	pools, err := workerpool.NewPoolSet(poolConfig, zeroLogger)
	if err != nil {
		log.Fatal().Err(err).Msg("Failed to create worker pools")
	}

	synthesisFetcher := adapters.NewContentFetcher(&http.Client{Timeout: synthesisConfig.Timeout}, zeroLogger)
	imageFetcher := adapters.NewContentFetcher(&http.Client{Timeout: imageConfig.Timeout}, zeroLogger)

	speechSynthesizer := adapters.NewSpeechSynthesizer(synthesisFetcher, synthesisConfig, zeroLogger)
	imageGenerator := adapters.NewImageGenerator(imageFetcher, imageConfig, zeroLogger)
	mediaEncoder := adapters.NewFFmpegMediaEncoder(assemblyConfig.FFmpegPath, zeroLogger)

	videoLifecycle := services.NewVideoLifecycleService(zeroLogger, videoRepository, statusStore, stepPublisher)

	sceneAudioGenerator := services.NewSceneAudioGenerator(zeroLogger, storyStore, speechSynthesizer)

	sceneImageGenerator := services.NewSceneImageGenerator(zeroLogger, storyStore, imageGenerator, pools.Image)

	mediaPipeline := services.NewMediaPipelineOrchestrator(zeroLogger, storyStore, sceneAudioGenerator, sceneImageGenerator,
		videoLifecycle, pools.Media, pools.Audio)

	videoAssembler := services.NewVideoAssembler(zeroLogger, storyStore, objectStorage, mediaEncoder, videoLifecycle,
		pools.Media, assemblyConfig, s3Config.PresignTTL)

	statusStreaming := services.NewStatusStreamingService(zeroLogger, videoLifecycle, pools.Status, streamingConfig)

	mediaPipelineController := controllers.NewMediaPipelineController(zeroLogger, mediaPipeline, videoAssembler, videoLifecycle)
	videoStatusController := controllers.NewVideoStatusController(zeroLogger, videoLifecycle, statusStreaming)

	router := gin.Default()

	err = router.SetTrustedProxies(nil)
	if err != nil {
		log.Fatal().Err(err).Msg("Failed to set trusted proxies!")
	}

	router.GET("/health", func(c *gin.Context) {
		c.JSON(http.StatusOK, gin.H{"status": "ok"})
	})

	if serverConfig.JwksUrl != "" {
		authHandler, err := middleware.NewAuthHandler(serverConfig.JwksUrl, zeroLogger)
		if err != nil {
			log.Fatal().Err(err).Msg("Failed to create auth handler!")
		}
		router.Use(authHandler.AuthMiddleware())
	} else {
		zeroLogger.Warn("JWKS_URL is not set, serving without authentication")
	}

	mediaPipelineController.RegisterRoutes(router)
	videoStatusController.RegisterRoutes(router)

	server := &http.Server{
		Addr:              ":" + serverConfig.Port,
		Handler:           router,
		ReadHeaderTimeout: 10 * time.Second,
	}

	group, groupCtx := errgroup.WithContext(ctx)
	group.Go(func() error {
		zeroLogger.InfoWithFields("Server listening", map[string]interface{}{"addr": server.Addr})
		if err := server.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			return err
		}
		return nil
	})
	group.Go(func() error {
		<-groupCtx.Done()
		zeroLogger.Info("Shutting down")

		// Open streams hold Shutdown until they are closed.
		statusStreaming.CloseAll()

		shutdownCtx, cancel := context.WithTimeout(context.Background(), shutdownTimeout)
		defer cancel()
		return errors.Join(server.Shutdown(shutdownCtx), pools.Close(shutdownTimeout))
	})

	if err := group.Wait(); err != nil {
		zeroLogger.Error(err, "Server stopped with error")
	}
}
