package main

import (
	"context"
	"fmt"
	"log"
	"net/mail"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/go-co-op/gocron"

	echoapi "github.com/lingora/backend/apps/api/echo"
	"github.com/lingora/backend/core"
	"github.com/lingora/backend/core/curriculum"
	"github.com/lingora/backend/core/schedule"
	"github.com/lingora/backend/core/staffing"
	"github.com/lingora/backend/core/user"
	appfs "github.com/lingora/backend/fs"
	emailsvc "github.com/lingora/backend/services/email"
	logsvc "github.com/lingora/backend/services/logger"
	storagesvc "github.com/lingora/backend/services/storage"
	"github.com/lingora/backend/storage/database"
	sqlxrepos "github.com/lingora/backend/storage/database/sqlx"
)

func main() {
	// =========================================================================
	// Set up Dependencies

	conf := core.NewConfig()
	core.SetTemplatesFS(appfs.FS)

	logger := logsvc.NewRollbarLogger(
		log.New(os.Stdout, "API : ", log.LstdFlags|log.Lmicroseconds|log.Lshortfile),
		conf,
	)
	logger.Enable(!conf.Debug)

	// set up DB
	db, err := setUpDB(conf)
	if err != nil {
		logger.Fatal(fmt.Sprintf("setting up database: %v", err), err)
	}
	defer func() {
		if err = db.Close(); err != nil {
			logger.Error("closing database", err)
		}
	}()

	// set up object storage
	store, err := storagesvc.NewMinioStorage(conf)
	if err != nil {
		logger.Fatal(fmt.Sprintf("setting up object storage: %v", err), err)
	}
	if err = store.EnsureBucket(context.Background()); err != nil {
		logger.Fatal(fmt.Sprintf("ensuring storage bucket: %v", err), err)
	}

	// set up services
	var mailSvc core.EmailService
	if conf.Debug {
		mailSvc = emailsvc.NewConsoleService(conf)
	} else {
		mailSvc = emailsvc.NewSendgridService(conf, logger)
	}
	usrSvc := user.NewService(sqlxrepos.NewUserRepository(db.DB), mailSvc, conf)
	schedSvc := schedule.NewService(db, sqlxrepos.NewScheduleRepository(db.DB), store, schedule.NewGrid(conf.Grid))
	currSvc := curriculum.NewService(db, sqlxrepos.NewCurriculumRepository(db.DB))
	staffSvc := staffing.NewService(sqlxrepos.NewStaffingRepository(db.DB), usrSvc)

	// =========================================================================
	// Initialize App

	logger.Info(fmt.Sprintf("Application initializing : version %q", conf.Build))
	defer logger.Info("Application stopped")

	cron := startCron(conf, logger, usrSvc, schedSvc, mailSvc)
	defer cron.Stop()

	// =========================================================================
	// Start API Service

	shutdown := make(chan os.Signal, 1)
	signal.Notify(shutdown, os.Interrupt, syscall.SIGTERM)

	app := echoapi.NewServer(
		&echoapi.Options{
			Address:        conf.Server.Addr,
			Conf:           conf,
			Logger:         logger,
			SignalShutdown: func() { shutdown <- syscall.SIGTERM },
			UserSvc:        usrSvc,
			ScheduleSvc:    schedSvc,
			CurriculumSvc:  currSvc,
			StaffingSvc:    staffSvc,
		},
	)

	serverErrors := make(chan error, 1)
	go func() {
		logger.Info("API server listening on " + conf.Server.Addr)
		serverErrors <- app.Start()
	}()

	// =========================================================================
	// Shutdown

	select {
	case err = <-serverErrors:
		logger.Fatal(fmt.Sprintf("server error: %v", err), err)

	case sig := <-shutdown:
		logger.Info(fmt.Sprintf("%v: Start shutdown...", sig))

		// give outstanding requests a deadline for completion
		ctx, cancel := context.WithTimeout(context.Background(), conf.Server.ShutdownTimeout)
		defer cancel()

		if err = app.Stop(ctx); err != nil {
			logger.Error(fmt.Sprintf("could not stop server gracefully: %v", err), err)
		}
	}
}

func setUpDB(conf *core.Config) (*database.DB, error) {
	if err := database.CreateIfNotExist(conf); err != nil {
		return nil, err
	}

	db, err := database.Open(conf)
	if err != nil {
		return nil, err
	}

	if err = database.Migrate(db); err != nil {
		return nil, err
	}
	return db, nil
}

// startCron schedules the recurring background jobs; only a weekly
// availability reminder for now.
func startCron(
	conf *core.Config,
	logger core.Logger,
	usrSvc user.Service,
	schedSvc schedule.Service,
	mailSvc core.EmailService,
) *gocron.Scheduler {
	cron := gocron.NewScheduler(time.UTC)
	_, err := cron.Every(1).Monday().At("06:00").Do(func() {
		if err := sendAvailabilityReminders(conf, usrSvc, schedSvc, mailSvc); err != nil {
			logger.Error("sending availability reminders", err)
		}
	})
	if err != nil {
		logger.Fatal(fmt.Sprintf("scheduling availability reminders: %v", err), err)
	}
	cron.StartAsync()
	return cron
}

// sendAvailabilityReminders nudges active teachers and tutors who have not
// marked any availability yet.
func sendAvailabilityReminders(
	conf *core.Config,
	usrSvc user.Service,
	schedSvc schedule.Service,
	mailSvc core.EmailService,
) error {
	ctx, cancel := context.WithTimeout(context.Background(), time.Minute)
	defer cancel()

	active := true
	staff, err := usrSvc.Filter(ctx, user.QueryFilter{
		Roles:    append(append([]string{}, user.TeacherRoles...), user.TutorRoles...),
		IsActive: &active,
	})
	if err != nil {
		return err
	}

	msgs := make([]*core.EmailMessage, 0, len(staff))
	for _, usr := range staff {
		slots, err := schedSvc.AvailabilitySlots(ctx, usr.ID)
		if err != nil {
			return err
		}
		if len(slots) > 0 {
			continue
		}
		msgs = append(msgs, &core.EmailMessage{
			To:      []mail.Address{{Name: usr.Name, Address: usr.Email}},
			Subject: "Your weekly availability is empty",
			BodyStr: "Hi " + usr.Name + ",\n\n" +
				"You have not marked any availability on your " + conf.AppName + " calendar yet. " +
				"Please fill it in so classes can be scheduled for you.\n\n" +
				conf.FrontendBaseURL + "/availability",
		})
	}
	if len(msgs) > 0 {
		mailSvc.SendMessages(msgs...)
	}
	return nil
}
