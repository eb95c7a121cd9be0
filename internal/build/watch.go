package build

import (
	"context"

	"github.com/Zhangdroid/vanilla-extract/internal/dev"
)

// Watch performs an initial build, then rebuilds on every change under
// the watched directories. Unlike serve mode there is no self-skip:
// style sources themselves trigger rebuilds too. onBuild receives each
// build's outcome. Watch blocks until the context is canceled.
func (b *Builder) Watch(ctx context.Context, onBuild func(*Result, error)) error {
	watcher := dev.NewWatcher(dev.WatcherConfig{
		Dirs:   b.config.WatchPaths(),
		Ignore: append(append([]string{}, dev.DefaultIgnore...), b.config.Dev.Ignore...),
	})

	// Attach the watcher before the first build so every
	// compiler-reported dependency registers, including imports
	// living outside the configured watch directories.
	b.plugin.ConfigureServer(nil, nil, watcher)

	onBuild(b.Build(ctx))

	changeCh := make(chan string, 64)
	watcher.OnChange(func(path string) {
		select {
		case changeCh <- path:
		default:
		}
	})
	go watcher.Start(ctx)
	defer watcher.Stop()

	for {
		select {
		case <-ctx.Done():
			return nil
		case <-changeCh:
			// Coalesce change bursts into one rebuild.
			draining := true
			for draining {
				select {
				case <-changeCh:
				default:
					draining = false
				}
			}
			onBuild(b.Build(ctx))
		}
	}
}
