package main

import (
	"log"
	"os"

	"github.com/jmoiron/sqlx"

	"github.com/internlink/backend/core"
	"github.com/internlink/backend/storage/database"
	sqlxrepos "github.com/internlink/backend/storage/database/sqlx"
)

var logger *log.Logger

func main() {
	defer os.Exit(0)

	logger = log.New(os.Stdout, "ADMIN : ", log.LstdFlags|log.Lmicroseconds|log.Lshortfile)

	conf := core.NewConfig()

	// set up DB
	db, err := database.Open(conf)
	errAndDie(err)
	defer db.Close()
	errAndDie(db.Ping())
	sdb := sqlx.NewDb(db, conf.Database.Engine)

	// start CLI
	cli := commandLine{
		db:          db,
		profileRepo: sqlxrepos.NewProfileRepository(sdb),
		schoolRepo:  sqlxrepos.NewSchoolRepository(sdb),
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
