package app

import "github.com/shandysiswandi/epimap/internal/disease"

func (a *App) initModules() {
	if a.config.GetBool("modules.disease.enabled") {
		closeFn, err := disease.New(disease.Dependency{
			Config:    a.config,
			Router:    a.router,
			Goroutine: a.goroutine,
			Context:   a.ctx,
			ID:        a.uuid,
		})
		exitOnError("failed to init module disease", err)
		if closeFn != nil {
			a.addCloser("Disease", closeFn)
		}
	}
}
