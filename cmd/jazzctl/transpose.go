package main

import (
	"fmt"
	"io"
	"strings"

	"jazz_picker_backend/internal/music"

	"github.com/spf13/cobra"
)

var transposeInstrument string

var transposeCmd = &cobra.Command{
	Use:   "transpose <concert-key>",
	Short: "Show the written key an instrument reads for a concert key",
	Long: `Maps a concert key to the key written for an instrument's transposition.
Keys use LilyPond names: c cs d ef e f fs g af a bf b, with a trailing m for minor.

Example:
  jazzctl transpose ef --instrument trumpet`,
	Args: cobra.ExactArgs(1),
	RunE: runTranspose,
}

func init() {
	transposeCmd.Flags().StringVarP(&transposeInstrument, "instrument", "i", "piano", "Instrument id")
}

type transposition struct {
	ConcertKey string `json:"concertKey" yaml:"concertKey"`
	WrittenKey string `json:"writtenKey" yaml:"writtenKey"`
	Instrument string `json:"instrument" yaml:"instrument"`
	Label      string `json:"label" yaml:"label"`
}

func instrumentIDs() string {
	ids := make([]string, 0, len(music.Instruments))
	for _, inst := range music.Instruments {
		ids = append(ids, inst.ID)
	}
	return strings.Join(ids, ", ")
}

func runTranspose(cmd *cobra.Command, args []string) error {
	inst, ok := music.InstrumentByID(transposeInstrument)
	if !ok {
		return fmt.Errorf("unknown instrument %q (one of: %s)", transposeInstrument, instrumentIDs())
	}
	key := strings.ToLower(strings.TrimSpace(args[0]))
	res := transposition{
		ConcertKey: key,
		WrittenKey: music.ConcertToWritten(key, inst.Transposition),
		Instrument: inst.ID,
		Label:      music.FormatKeyForInstrument(key, inst),
	}
	return render(cmd.OutOrStdout(), outputFormat, res, func(w io.Writer) {
		fmt.Fprintln(w, res.Label)
	})
}
