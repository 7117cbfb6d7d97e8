package main

import (
	"log"
	"os"

	"github.com/lingora/backend/core"
	"github.com/lingora/backend/core/curriculum"
	"github.com/lingora/backend/core/user"
	appfs "github.com/lingora/backend/fs"
	emailsvc "github.com/lingora/backend/services/email"
	"github.com/lingora/backend/storage/database"
	sqlxrepos "github.com/lingora/backend/storage/database/sqlx"
)

var logger *log.Logger

func main() {
	defer os.Exit(0)

	logger = log.New(os.Stdout, "ADMIN : ", log.LstdFlags|log.Lmicroseconds|log.Lshortfile)

	conf := core.NewConfig()
	core.SetTemplatesFS(appfs.FS)

	// set up DB; connection is lazy so `createdb` can run before the
	// database exists
	db, err := database.Open(conf)
	errAndDie(err)
	defer db.Close()

	usrRepo := sqlxrepos.NewUserRepository(db.DB)

	// start CLI
	cli := commandLine{
		conf:    conf,
		db:      db,
		usrRepo: usrRepo,
		usrSvc:  user.NewService(usrRepo, emailsvc.NewConsoleService(conf), conf),
		currSvc: curriculum.NewService(db, sqlxrepos.NewCurriculumRepository(db.DB)),
	}
	if err := cli.run(os.Args); err != nil {
		if err != errHelp {
			logger.Printf("\nerror: %s\n", err)
		}
		os.Exit(1)
	}
}

func errAndDie(err error) {
	if err != nil {
		logger.Fatal(err)
	}
}
