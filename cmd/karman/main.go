// Copyright (c) 2019 devblok
//
// This software is released under the MIT License.
// https://opensource.org/licenses/MIT

// Command karman loads the requested resources through the resource
// manager and reports on them. Resources are named as type:path pairs,
// a bare path is taken to be a manifest. Files come either from a
// directory (KARMAN_ROOT) or a kar archive (KARMAN_ARCHIVE).
package main

import (
	"flag"
	"strings"
	"time"

	"github.com/gobuffalo/envy"
	"github.com/joho/godotenv"
	log "github.com/sirupsen/logrus"

	"github.com/devblok/karman/loaders"
	"github.com/devblok/karman/resource"
	"github.com/devblok/karman/utility/kar"
)

func init() {
	godotenv.Load()
}

var (
	frameBudget = flag.Duration("budget", 4*time.Millisecond, "Loading budget per frame")
	verbose     = flag.Bool("v", false, "Verbose output")
)

func main() {
	flag.Parse()
	if *verbose {
		log.SetLevel(log.DebugLevel)
	}
	if flag.NArg() == 0 {
		flag.PrintDefaults()
		return
	}

	resolver, cleanup, err := newResolver()
	if err != nil {
		log.WithField("err", err).Fatal("failed to set up a resolver")
	}
	defer cleanup()

	mgr, err := resource.NewManager(resource.Configuration{Resolver: resolver})
	if err != nil {
		log.WithField("err", err).Fatal("failed to create the manager")
	}
	defer mgr.Clear()

	mgr.RegisterLoader(loaders.RawType, loaders.RawLoader{})
	mgr.RegisterLoader(loaders.ShaderType, loaders.ShaderLoader{})
	mgr.RegisterLoader(loaders.ManifestType, loaders.ManifestLoader{})
	mgr.RegisterAsyncLoader(loaders.ImageType, loaders.ImageLoader{})
	mgr.RegisterAsyncLoader(loaders.ModelType, loaders.ModelLoader{})

	for _, arg := range flag.Args() {
		typ, path := splitResourceArg(arg)
		if err := mgr.Schedule(typ, path, nil); err != nil {
			log.WithFields(log.Fields{
				"resource": arg,
				"err":      err,
			}).Fatal("failed to schedule")
		}
	}

	start := time.Now()
	for {
		done, err := mgr.RunFor(*frameBudget)
		if err != nil {
			log.WithField("err", err).Fatal("loading failed")
		}
		if done {
			break
		}
		log.WithField("progress", mgr.Progress()).Info("loading")
	}

	log.WithFields(log.Fields{
		"resources": mgr.LoadedCount(),
		"elapsed":   time.Since(start),
	}).Info("loading finished")
}

// newResolver builds the file source from the environment, preferring
// an archive when both are configured.
func newResolver() (resource.Resolver, func(), error) {
	if name := envy.Get("KARMAN_ARCHIVE", ""); name != "" {
		archive, err := kar.OpenFile(name)
		if err != nil {
			return nil, nil, err
		}
		return resource.NewArchiveResolver(archive), func() { archive.Close() }, nil
	}
	root := envy.Get("KARMAN_ROOT", ".")
	return resource.DirResolver{Root: root}, func() {}, nil
}

func splitResourceArg(arg string) (typ, path string) {
	if idx := strings.Index(arg, ":"); idx >= 0 {
		return arg[:idx], arg[idx+1:]
	}
	return loaders.ManifestType, arg
}
