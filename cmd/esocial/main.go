package main

import (
	"context"
	"errors"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/IBM/sarama"

	appoutbox "esocial/internal/app/outbox"
	authsvc "esocial/internal/app/services/auth"
	groupssvc "esocial/internal/app/services/groups"
	mentsvc "esocial/internal/app/services/mentorships"
	msgsvc "esocial/internal/app/services/messaging"
	postssvc "esocial/internal/app/services/posts"
	userssvc "esocial/internal/app/services/users"
	domainauth "esocial/internal/domain/auth"
	domaingroup "esocial/internal/domain/group"
	domainment "esocial/internal/domain/mentorship"
	domainmsg "esocial/internal/domain/messaging"
	domainpost "esocial/internal/domain/post"
	domainuser "esocial/internal/domain/user"
	"esocial/internal/infra/broker/kafka"
	"esocial/internal/infra/config"
	appmongo "esocial/internal/infra/db/mongo"
	"esocial/internal/infra/email"
	ginserver "esocial/internal/infra/http/gin"
	"esocial/internal/infra/obs"
	infraoutbox "esocial/internal/infra/outbox"
	"esocial/internal/infra/security"
	"esocial/internal/infra/storage/memory"
	"esocial/internal/infra/storage/s3"
)

func main() {
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	cfg, err := config.Load()
	if err != nil {
		slog.Error("configuration load failed", "error", err)
		os.Exit(1)
	}
	logger := obs.NewLogger(cfg.Env)

	app, err := buildApplication(ctx, cfg, logger)
	if err != nil {
		logger.Error("application wiring failed", "error", err)
		os.Exit(1)
	}

	server := ginserver.NewServer(cfg, obs.Middleware{Logger: logger}, obs.HealthHandlers{
		Ready: app.ready,
	}, app.handlers)

	if app.outboxWorker != nil {
		go func() {
			if err := app.outboxWorker.Run(ctx); err != nil && !errors.Is(err, context.Canceled) {
				logger.Error("outbox worker stopped", "error", err)
			}
		}()
	}
	if app.auditConsumer != nil {
		go func() {
			topics := auditTopics(cfg.KafkaTopicPrefix)
			if err := app.auditConsumer.Run(ctx, topics); err != nil && !errors.Is(err, context.Canceled) {
				logger.Error("audit consumer stopped", "error", err)
			}
		}()
	}

	go func() {
		<-ctx.Done()
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()
		if err := server.Shutdown(shutdownCtx); err != nil {
			logger.Error("http shutdown failed", "error", err)
		}
		if app.auditConsumer != nil {
			if err := app.auditConsumer.Close(); err != nil {
				logger.Error("audit consumer close failed", "error", err)
			}
		}
	}()

	logger.Info("HTTP server starting", "addr", cfg.HTTPAddr)
	if err := server.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
		logger.Error("http server failed", "error", err)
		os.Exit(1)
	}
	logger.Info("HTTP server stopped")
}

type application struct {
	handlers      ginserver.Handlers
	ready         func() error
	outboxWorker  *infraoutbox.Worker
	auditConsumer *kafka.Consumer
}

type stores struct {
	users       domainuser.Repository
	search      domainuser.Searcher
	sessions    domainauth.SessionStore
	messages    domainmsg.Store
	posts       domainpost.Repository
	comments    domainpost.CommentRepository
	groups      domaingroup.Repository
	mentorships domainment.Repository
	outbox      appoutbox.Outbox
	mongoOutbox *infraoutbox.Store
	ready       func() error
}

func buildApplication(ctx context.Context, cfg config.Config, logger *slog.Logger) (application, error) {
	st, err := buildStores(ctx, cfg, logger)
	if err != nil {
		return application{}, err
	}

	encoder := appoutbox.JSONEventEncoder{}

	var mailer authsvc.Mailer
	if cfg.SMTPAddr != "" {
		mailer = email.SMTPMailer{
			Addr:        cfg.SMTPAddr,
			From:        cfg.SMTPFrom,
			Username:    cfg.SMTPUsername,
			Password:    cfg.SMTPPassword,
			FrontendURL: cfg.FrontendURL,
		}
	} else {
		mailer = email.LogMailer{Logger: logger}
	}

	authService := &authsvc.Service{
		Users:           st.users,
		Sessions:        st.sessions,
		Passwords:       security.BcryptHasher{},
		Tokens:          security.RandomTokenGenerator{},
		Mail:            mailer,
		SessionTTL:      cfg.SessionTTL,
		VerificationTTL: cfg.VerificationTTL,
		ResetTTL:        cfg.ResetTTL,
		RequireEduEmail: cfg.RequireEduEmail,
		RequireVerified: cfg.RequireVerified,
		Logger:          logger,
	}
	usersService := &userssvc.Service{
		Users:  st.users,
		Search: st.search,
		Logger: logger,
	}
	messagingService := &msgsvc.Service{
		Messages:  st.messages,
		Directory: st.users,
		Outbox:    st.outbox,
		Encoder:   encoder,
		Logger:    logger,
	}
	postsService := &postssvc.Service{
		Posts:    st.posts,
		Comments: st.comments,
		Groups:   st.groups,
		Outbox:   st.outbox,
		Encoder:  encoder,
		Logger:   logger,
	}
	groupsService := &groupssvc.Service{
		Groups:  st.groups,
		Outbox:  st.outbox,
		Encoder: encoder,
		Logger:  logger,
	}
	mentorshipsService := &mentsvc.Service{
		Mentorships: st.mentorships,
		Directory:   st.users,
		Outbox:      st.outbox,
		Encoder:     encoder,
		Logger:      logger,
	}

	var uploader s3.Uploader = s3.NoopUploader{}
	if cfg.S3Endpoint != "" {
		client, err := s3.NewClient(cfg.S3Endpoint, cfg.S3UseSSL, cfg.S3AccessKey, cfg.S3SecretKey, cfg.S3Bucket, cfg.S3PublicEndpoint, logger)
		if err != nil {
			logger.Warn("object storage unavailable, uploads disabled", "error", err)
		} else {
			uploader = client
		}
	}

	postHandler := ginserver.PostHandler{Service: postsService, Logger: logger}
	app := application{
		handlers: ginserver.Handlers{
			Auth:       ginserver.AuthHandler{Service: authService, Logger: logger},
			User:       ginserver.UserHandler{Service: usersService, Logger: logger},
			Message:    ginserver.MessageHandler{Service: messagingService, Logger: logger},
			Post:       postHandler,
			Comment:    ginserver.CommentHandler{Service: postsService, Posts: postHandler},
			Group:      ginserver.GroupHandler{Service: groupsService, Logger: logger},
			Mentorship: ginserver.MentorshipHandler{Service: mentorshipsService, Logger: logger},
			Upload:     ginserver.UploadHandler{Uploader: uploader, Logger: logger},
			AuthMiddleware: ginserver.AuthMiddleware{
				Service: authService,
				Logger:  logger,
			}.Handle,
		},
		ready: st.ready,
	}

	if len(cfg.KafkaBrokers) == 0 {
		return app, nil
	}
	if st.mongoOutbox == nil {
		logger.Warn("event publishing requires mongo, outbox worker disabled")
		return app, nil
	}

	producer, err := kafka.NewProducer(cfg.KafkaBrokers, nil)
	if err != nil {
		return application{}, err
	}
	app.outboxWorker = &infraoutbox.Worker{
		Store:       st.mongoOutbox,
		Producer:    producer,
		Interval:    cfg.OutboxPollInterval,
		TopicPrefix: cfg.KafkaTopicPrefix,
	}

	if cfg.KafkaAuditGroup != "" {
		consumer, err := kafka.NewConsumer(cfg.KafkaBrokers, cfg.KafkaAuditGroup, nil, eventAuditor{logger: logger})
		if err != nil {
			logger.Warn("audit consumer unavailable", "error", err)
		} else {
			app.auditConsumer = consumer
		}
	}
	return app, nil
}

func buildStores(ctx context.Context, cfg config.Config, logger *slog.Logger) (stores, error) {
	if cfg.MongoURI == "" {
		logger.Info("MONGO_URI not set, using in-memory storage")
		users := memory.NewUserRepository()
		return stores{
			users:    users,
			search:   users,
			sessions: memory.NewSessionStore(),
			messages: memory.NewMessageStore(),
			posts: memory.NewPostRepository(func(id domainuser.ID) (domainuser.Role, bool) {
				user, err := users.ByID(context.Background(), id)
				if err != nil {
					return "", false
				}
				return user.Role, true
			}),
			comments:    memory.NewCommentRepository(),
			groups:      memory.NewGroupRepository(),
			mentorships: memory.NewMentorshipRepository(),
			outbox:      memory.NewOutbox(),
			ready:       func() error { return nil },
		}, nil
	}

	client, err := appmongo.New(cfg.MongoURI, cfg.MongoDB)
	if err != nil {
		return stores{}, err
	}
	pingCtx, cancel := context.WithTimeout(ctx, 5*time.Second)
	defer cancel()
	if err := client.Ping(pingCtx); err != nil {
		return stores{}, err
	}
	logger.Info("mongo connected", "database", cfg.MongoDB)

	users := appmongo.NewUserRepository(client.DB)
	posts := appmongo.NewPostRepository(client.DB)
	posts.RoleFor = func(ctx context.Context, id domainuser.ID) (domainuser.Role, bool) {
		user, err := users.ByID(ctx, id)
		if err != nil {
			return "", false
		}
		return user.Role, true
	}
	mongoOutbox := infraoutbox.NewStore(client.DB)

	return stores{
		users:       users,
		search:      users,
		sessions:    appmongo.NewSessionStore(client.DB),
		messages:    appmongo.NewMessageRepository(client.DB),
		posts:       posts,
		comments:    appmongo.NewCommentRepository(client.DB),
		groups:      appmongo.NewGroupRepository(client.DB),
		mentorships: appmongo.NewMentorshipRepository(client.DB),
		outbox:      mongoOutbox,
		mongoOutbox: mongoOutbox,
		ready: func() error {
			ctx, cancel := context.WithTimeout(context.Background(), 2*time.Second)
			defer cancel()
			return client.Ping(ctx)
		},
	}, nil
}

// eventAuditor logs every published domain event. It exists so operators can
// tail the event stream without attaching an external consumer.
type eventAuditor struct {
	logger *slog.Logger
}

func (a eventAuditor) Handle(_ context.Context, msg *sarama.ConsumerMessage) error {
	if a.logger != nil {
		a.logger.Info("event observed", "topic", msg.Topic, "partition", msg.Partition, "offset", msg.Offset, "key", string(msg.Key))
	}
	return nil
}

func auditTopics(prefix string) []string {
	bases := []string{"message", "post", "group", "mentorship"}
	topics := make([]string, 0, len(bases))
	for _, base := range bases {
		topics = append(topics, prefix+base+".events.v1")
	}
	return topics
}
