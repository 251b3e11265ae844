package cmd

// appHelpTemplate lists the commands one per line, followed by the
// environment variables every command reads.
const appHelpTemplate = `{{.Name}} - {{.Usage}}

Usage: {{if .UsageText}}{{.UsageText}}{{else}}{{.HelpName}} <command> [arguments...]{{end}}
{{if .Description}}
{{.Description}}
{{end}}{{if .VisibleCommands}}
Commands:{{range .VisibleCommands}}
  {{printf "%-10s" (join .Names ", ")}} {{.Usage}}{{end}}
{{end}}
Environment:
  CUELINE_DEBUG       same as --debug
  CUELINE_LOG_FILE    same as --log-file
  CUELINE_JOURNAL     default journal for run and history
  CUELINE_ADDR        listen address of serve
  CUELINE_RPC_SECRET  bearer token required by serve

Run "{{.HelpName}} help <command>" for the flags of a command.

`

// commandHelpTemplate prints one command with its flags.
const commandHelpTemplate = `{{.HelpName}} - {{.Usage}}

Usage:
  {{.HelpName}} {{if .UsageText}}{{.UsageText}}{{else}}[arguments...]{{end}}
{{if .Description}}
{{.Description}}
{{end}}{{if .VisibleFlags}}
Flags:{{range .VisibleFlags}}
  {{.}}{{end}}
{{end}}
`
