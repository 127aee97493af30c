package main

import (
	"context"
	"net"
	"net/http"
	"time"

	"github.com/BearBump/ParcelSync/internal/integrations/parcel/emulator"
)

type emulatorHTTPOpts struct {
	httpAddr string
	onListen func(httpAddr string)

	server *emulator.Server
}

func runEmulatorHTTPServer(ctx context.Context, opts emulatorHTTPOpts) error {
	if opts.httpAddr == "" {
		opts.httpAddr = ":9000"
	}
	if opts.server == nil {
		opts.server = emulator.New("")
	}

	lis, err := net.Listen("tcp", opts.httpAddr)
	if err != nil {
		return err
	}
	if opts.onListen != nil {
		opts.onListen(lis.Addr().String())
	}

	srv := &http.Server{Handler: opts.server.Handler()}
	go func() {
		<-ctx.Done()
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 2*time.Second)
		defer cancel()
		_ = srv.Shutdown(shutdownCtx)
		_ = lis.Close()
	}()

	if err := srv.Serve(lis); err != nil && err != http.ErrServerClosed {
		return err
	}
	return nil
}
