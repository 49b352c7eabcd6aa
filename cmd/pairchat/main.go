package main

import (
	"bufio"
	"fmt"
	"os"
	"strings"

	"pairchat/internal/api"
	"pairchat/internal/config"
	"pairchat/internal/logging"
	"pairchat/internal/models"
	"pairchat/internal/session"
)

func main() {
	cfg, err := config.LoadClient()
	if err != nil {
		os.Stderr.WriteString("config: " + err.Error() + "\n")
		os.Exit(1)
	}
	log := logging.New(cfg.LogLevel, cfg.LogPretty)

	backend := api.New(cfg.APIURL)
	dialer := session.NewRealtimeDialer(cfg.RealtimeURL, log)
	ctrl := session.New(backend, dialer, log)
	go ctrl.Run()
	defer ctrl.Close()

	go renderLoop(ctrl)

	fmt.Println("pairchat: enter a display name to find a partner.")
	fmt.Println("commands: /cancel  /stop  /quit")

	scanner := bufio.NewScanner(os.Stdin)
	for scanner.Scan() {
		line := strings.TrimSpace(scanner.Text())
		if line == "" {
			continue
		}

		switch line {
		case "/quit":
			// Leave the room before exiting so the partner is notified.
			phase := ctrl.View().Phase
			if phase == models.PhaseChatting || phase == models.PhaseEnded {
				_ = ctrl.Stop()
			}
			return
		case "/cancel":
			if err := ctrl.Cancel(); err != nil {
				fmt.Println("!", err)
			}
			continue
		case "/stop":
			if err := ctrl.Stop(); err != nil {
				fmt.Println("!", err)
			}
			continue
		}

		var actErr error
		switch ctrl.View().Phase {
		case models.PhaseNameEntry:
			actErr = ctrl.SubmitName(line)
		case models.PhaseChatting:
			actErr = ctrl.SendMessage(line)
		case models.PhaseWaiting:
			fmt.Println("! still waiting for a partner (/cancel to stop)")
		case models.PhaseEnded:
			fmt.Println("! chat has ended (/stop to start over)")
		}
		if actErr != nil {
			fmt.Println("!", actErr)
		}
	}
}

// renderLoop prints state changes as they happen: phase transitions, newly
// arrived messages, notices, and restored drafts.
func renderLoop(ctrl *session.Controller) {
	lastPhase := models.PhaseNameEntry
	lastNotice := ""
	printed := 0

	for range ctrl.Updates() {
		v := ctrl.View()

		if v.Phase != lastPhase {
			switch v.Phase {
			case models.PhaseWaiting:
				fmt.Printf("waiting for a partner, %s...\n", v.DisplayName)
			case models.PhaseChatting:
				fmt.Printf("matched with %s, say hello!\n", v.PartnerName)
			case models.PhaseNameEntry:
				fmt.Println("enter a display name to find a partner.")
			}
			lastPhase = v.Phase
			printed = 0
		}

		if v.Notice != "" && v.Notice != lastNotice {
			fmt.Println("*", v.Notice)
		}
		lastNotice = v.Notice

		for ; printed < len(v.Messages); printed++ {
			msg := v.Messages[printed]
			who := v.PartnerName
			if msg.Mine {
				who = "you"
			}
			fmt.Printf("[%s] %s\n", who, msg.Body)
		}

		if v.Draft != "" {
			fmt.Printf("! send failed, draft kept: %s\n", v.Draft)
		}
	}
}
