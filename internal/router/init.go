package router

import (
	"github.com/kakomonhub/api/internal/application"
	"github.com/kakomonhub/api/internal/container"
	pginfra "github.com/kakomonhub/api/internal/infrastructure/postgres"
	handlers "github.com/kakomonhub/api/internal/interface/http"
	"github.com/kakomonhub/api/internal/interface/middleware"
	"github.com/kakomonhub/api/internal/router/modules"
)

type appServices struct {
	Auth     *application.AuthService
	Profiles *application.ProfileService
	Exams    *application.ExamService
}

func buildServices() appServices {
	cfg := container.GetConfig()
	logger := container.GetLogger()

	policy := application.NewDomainPolicy(cfg.AllowedDomains(), cfg.DomainCheckBypassed())

	// A typed nil inside the interface would defeat the service's nil check.
	var pub application.EmailPublisher
	if p := container.GetRabbitPub(); p != nil {
		pub = p
	}
	auth := application.NewAuthService(
		container.GetAdmin(),
		container.GetRedis(),
		policy,
		pub,
		logger,
		cfg,
	)

	profileRepo := pginfra.NewProfileRepository(container.GetPGPool())
	profiles := application.NewProfileService(
		profileRepo,
		container.GetAdmin(),
		container.GetRedis(),
		logger,
		cfg.UniversityName,
	)

	examRepo := pginfra.NewExamRepository(container.GetPGPool())
	exams := application.NewExamService(
		examRepo,
		container.GetGCS(),
		cfg.GCSBucket,
		container.GetES(),
		cfg.ESExamsIndex,
		logger,
		cfg.UniversityName,
	)

	return appServices{Auth: auth, Profiles: profiles, Exams: exams}
}

// InitModules initializes all application modules and registers them with the router registry
// This function should be called once during application startup to wire up all modules
func InitModules(r *Registry) {
	cfg := container.GetConfig()
	logger := container.GetLogger()
	svcs := buildServices()

	authHandler := handlers.NewAuthHandler(svcs.Auth, logger, cfg.CookieDomain, cfg.CookieSecure)
	profileHandler := handlers.NewProfileHandler(svcs.Profiles, logger)
	examHandler := handlers.NewExamHandler(svcs.Exams, logger)
	callbackHandler := handlers.NewCallbackHandler(svcs.Auth, svcs.Profiles, logger, cfg)

	classifier := middleware.NewClassifier(
		[]string{cfg.LandingPath, "/exams", "/mypage"},
		[]string{cfg.OnboardPath},
	)
	gate := middleware.NewSessionGate(
		container.GetSessionParser(),
		svcs.Profiles,
		classifier,
		logger,
		cfg.LoginPath,
		cfg.OnboardPath,
		cfg.LandingPath,
	)

	r.Add(modules.NewAuthModule(authHandler))
	r.Add(modules.NewProfileModule(profileHandler))
	r.Add(modules.NewExamModule(examHandler))
	r.Add(modules.NewDebugModule())
	r.AddPage(modules.NewPageModule(handlers.NewPageHandler(), callbackHandler, gate))
}
