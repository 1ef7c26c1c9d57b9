// Package environ provides ModuleEnvironment, a translate.Environment that
// collects a module's declarations into a ModuleInfo.
//
//	info, state, err := environ.Translate(data)
//	if err != nil {
//		return err
//	}
//	body, _ := info.Body(state.ImportedFunctionCount())
//
// ModuleInfo borrows the module buffer for function bodies, data segment
// contents and custom sections.
package environ
