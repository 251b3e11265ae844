// Package common holds what the cueline commands share: error and help
// printing, the version string, the realtime position bar and fixed-width
// tables.
package common

import (
	"fmt"
	"os"
	"strings"

	"github.com/urfave/cli"
	"github.com/vbauerster/mpb/v8"
	"github.com/vbauerster/mpb/v8/decor"
)

// VersionCmdStr is printed by the version command. Execute fills it in.
var VersionCmdStr string

// replaced in tests
var (
	showAppHelpAndExit = cli.ShowAppHelpAndExit
	showCommandHelp    = cli.ShowCommandHelp
)

// PositionScale is the number of bar units per second of context time.
const PositionScale = 1000

// InitPositionBar creates a bar tracking context time from zero to length
// seconds. position, when non-nil, is polled on every render and shown as
// the transport position; it must be safe to call from the render goroutine.
func InitPositionBar(p *mpb.Progress, prefix string, length float64, position func() float64) *mpb.Bar {
	barStyle := mpb.BarStyle().Lbound("╢").Filler("█").Tip("█").Padding("░").Rbound("╟")

	name := prefix + "Playing"
	total := int64(length * PositionScale)

	appended := []decor.Decorator{
		decor.Any(func(s decor.Statistics) string {
			return fmt.Sprintf("%.2fs/%.2fs", float64(s.Current)/PositionScale, float64(s.Total)/PositionScale)
		}, decor.WC{W: 16}),
	}
	if position != nil {
		appended = append(appended, decor.Any(func(decor.Statistics) string {
			return fmt.Sprintf("pos %.3f", position())
		}, decor.WC{W: 12}))
	}

	bar := p.New(total,
		barStyle,
		mpb.PrependDecorators(
			decor.Name(name, decor.WC{W: len(name) + 1, C: decor.DindentRight}),
			decor.OnComplete(decor.Percentage(decor.WC{W: 5}), "Complete"),
		),
		mpb.AppendDecorators(appended...),
	)
	return bar
}

// SetPosition moves bar to context time t.
func SetPosition(bar *mpb.Bar, t float64) {
	bar.SetCurrent(int64(t * PositionScale))
}

// Help prints the application help, or the help of the command named by
// the first argument.
func Help(ctx *cli.Context) error {
	arg := ctx.Args().First()
	if arg == "" || arg == "help" {
		fmt.Printf("%s %s\n", ctx.App.Name, ctx.App.Version)
		showAppHelpAndExit(ctx, 0)
		return nil
	}
	if err := showCommandHelp(ctx, arg); err != nil {
		return PrintErrWithHelp(ctx, err)
	}
	return nil
}

func GetVersion(ctx *cli.Context) error {
	fmt.Println(VersionCmdStr)
	return nil
}

// PrintRuntimeErr prints "<app>: <cmd>[<action>]: <err>" to stdout. Commands
// report failures this way and return nil, so the exit status stays 0 like
// any other printed result. A nil err prints nothing.
func PrintRuntimeErr(ctx *cli.Context, cmd, action string, err error) {
	if err == nil {
		return
	}
	name := os.Args[0]
	if ctx != nil && ctx.App != nil {
		name = ctx.App.HelpName
	}
	fmt.Printf("%s: %s[%s]: %s\n", name, cmd, action, err.Error())
}

// PrintErrWithCmdHelp prints err followed by the current command's help.
func PrintErrWithCmdHelp(ctx *cli.Context, err error) error {
	return printErrWithCallback(ctx, err, func() {
		if err := showCommandHelp(ctx, ctx.Command.Name); err != nil {
			fmt.Println(err.Error())
		}
	})
}

// PrintErrWithHelp prints err followed by the application help and exits
// with status 1.
func PrintErrWithHelp(ctx *cli.Context, err error) error {
	return printErrWithCallback(ctx, err, func() {
		showAppHelpAndExit(ctx, 1)
	})
}

func printErrWithCallback(ctx *cli.Context, err error, callback func()) error {
	if err == nil {
		return nil
	}
	estr := strings.ToLower(err.Error())
	if estr == "flag: help requested" {
		return Help(ctx)
	}
	if asksVersion(estr) {
		return GetVersion(ctx)
	}
	fmt.Printf("%s: %s\n\n", ctx.App.HelpName, err.Error())
	callback()
	return nil
}

// asksVersion reports whether an undefined-flag error was caused by -v or
// --version, which the app handles as the version command.
func asksVersion(estr string) bool {
	for _, f := range []string{" -v", " -version", " --version"} {
		if strings.HasSuffix(estr, f) {
			return true
		}
	}
	return false
}

// UsageErrorCallback is the OnUsageError handler of the app and its
// commands. It prints the error with the matching help text.
func UsageErrorCallback(ctx *cli.Context, err error, _ bool) error {
	if ctx.Command.Name != "" {
		return PrintErrWithCmdHelp(ctx, err)
	}
	return PrintErrWithHelp(ctx, err)
}

// Beaut centers s in a field of width n. The extra space of an odd
// remainder goes to the right. Strings wider than n are cut to n.
func Beaut(s string, n int) string {
	if len(s) >= n {
		return s[:n]
	}
	x := n - len(s)
	return strings.Repeat(" ", x/2) + s + strings.Repeat(" ", x-x/2)
}

// Column is one column of a Table.
type Column struct {
	Title string
	Width int
}

// Table renders rows of centered, fixed-width cells between pipes.
type Table struct {
	cols []Column
	rows [][]string
}

func NewTable(cols ...Column) *Table {
	return &Table{cols: cols}
}

// Append adds a row. Missing cells are blank and extra cells are ignored.
func (t *Table) Append(cells ...string) {
	row := make([]string, len(t.cols))
	copy(row, cells)
	t.rows = append(t.rows, row)
}

func (t *Table) Len() int { return len(t.rows) }

func (t *Table) line(cell func(i int, c Column) string) string {
	var b strings.Builder
	b.WriteByte('|')
	for i, c := range t.cols {
		b.WriteString(cell(i, c))
		b.WriteByte('|')
	}
	b.WriteByte('\n')
	return b.String()
}

func (t *Table) String() string {
	width := 1
	for _, c := range t.cols {
		width += c.Width + 1
	}
	rule := strings.Repeat("-", width) + "\n"

	var b strings.Builder
	b.WriteString(rule)
	b.WriteString(t.line(func(_ int, c Column) string { return Beaut(c.Title, c.Width) }))
	b.WriteString(t.line(func(_ int, c Column) string { return strings.Repeat("-", c.Width) }))
	for _, row := range t.rows {
		b.WriteString(t.line(func(i int, c Column) string { return Beaut(row[i], c.Width) }))
	}
	b.WriteString(rule)
	return b.String()
}
