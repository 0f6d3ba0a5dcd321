package main

import (
	"context"
	"flag"
	"fmt"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/anyproto/any-sync/app"
	"github.com/anyproto/any-sync/app/logger"
	"github.com/anyproto/any-sync/metric"
	"go.uber.org/zap"

	"github.com/aqualab/aqualab-push-server/audit"
	"github.com/aqualab/aqualab-push-server/config"
	"github.com/aqualab/aqualab-push-server/db"
	"github.com/aqualab/aqualab-push-server/push"
	"github.com/aqualab/aqualab-push-server/redisprovider"
	"github.com/aqualab/aqualab-push-server/repo/tokenrepo"
	"github.com/aqualab/aqualab-push-server/sender"
	"github.com/aqualab/aqualab-push-server/sender/provider/fcm"
)

var log = logger.NewNamed("main")

var (
	flagConfigFile = flag.String("c", "etc/config.yml", "path to config file")
	flagVersion    = flag.Bool("v", false, "show version and exit")
	flagHelp       = flag.Bool("h", false, "show help and exit")
)

func main() {
	flag.Parse()

	app.AppName = "aqualab-push-server"

	if *flagVersion {
		fmt.Println(app.AppName, app.Version())
		fmt.Println(app.VersionDescription())
		return
	}
	if *flagHelp {
		fmt.Println(app.AppName)
		flag.PrintDefaults()
		return
	}

	conf, err := config.NewFromFile(*flagConfigFile)
	if err != nil {
		log.Fatal("can't open config file", zap.Error(err))
	}

	ctx := context.Background()
	a := new(app.App)
	a.Register(conf)
	Bootstrap(a)

	if err = a.Start(ctx); err != nil {
		log.Fatal("can't start app", zap.Error(err))
	}
	log.Info("app started", zap.String("version", a.Version()))

	exit := make(chan os.Signal, 1)
	signal.Notify(exit, os.Interrupt, syscall.SIGABRT, syscall.SIGTERM, syscall.SIGQUIT)
	sig := <-exit
	log.Info("received exit signal, stop app...", zap.String("signal", fmt.Sprint(sig)))

	ctx, cancel := context.WithTimeout(ctx, time.Minute)
	defer cancel()
	if err = a.Close(ctx); err != nil {
		log.Fatal("close error", zap.Error(err))
	}
	log.Info("goodbye!")
	time.Sleep(time.Millisecond * 100)
}

func Bootstrap(a *app.App) {
	a.Register(metric.New()).
		Register(db.New()).
		Register(redisprovider.New()).
		Register(tokenrepo.New()).
		Register(sender.New()).
		Register(fcm.New()).
		Register(audit.New()).
		Register(push.New())
}
