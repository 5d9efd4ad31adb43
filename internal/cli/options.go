package cli

// Options is the root of the command line. Struct tags are interpreted by
// github.com/jessevdk/go-flags.
type Options struct {
	EnvFile  []string `short:"e" long:"env-file" description:"Load environment variables from this file (repeatable)"`
	LogLevel string   `long:"log-level" description:"Override LOG_LEVEL (debug, info, warn, error)"`

	Serve     ServeCmd     `command:"serve"      description:"Serve the MCP tools"`
	Convert   ConvertCmd   `command:"convert"    description:"Convert an amount once and print the JSON result"`
	ListTools ListToolsCmd `command:"list-tools" description:"List the registered tools"`
	Call      CallCmd      `command:"call"       description:"Convert an amount through a running server"`
}

// bind hands every command the shared invocation.
func (o *Options) bind(rt *invocation) {
	o.Serve.rt = rt
	o.Convert.rt = rt
	o.ListTools.rt = rt
	o.Call.rt = rt
}
