// Package pipeline связывает декларативный PipelineSpec с orchestrator.
//
// Загрузка:
//
//	spec, err := pipeline.LoadFile("release.yaml")
//
// Компиляция в исполняемые actions:
//
//	p, err := pipeline.Build(spec, steps.DefaultRegistry(), params)
//	res, err := orchestrator.New(cfg).Execute(ctx, p)
//
// Каждый action получает guard из поля if (engine.RenderCondition)
// и runner, который рендерит config против значений deps и
// параметров run и вызывает зарегистрированный step.
//
// Plan описывает граф без выполнения: seeds, топологический порядок,
// workflow-scope и требования каждого узла.
package pipeline
