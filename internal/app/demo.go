package app

import (
	"strings"

	"cardtable/internal/client"
	"cardtable/internal/domain"
	"cardtable/internal/plugin"
	"cardtable/internal/protocol"
)

// DemoScript returns a small demonstration game over a NewTableBoard: the
// bank shuffles the draw pile and deals handSize cards to every seat, then
// the users take turns picking a card from their hand to play onto the table
// until every hand is empty.
func DemoScript(registry *plugin.Registry, handSize int) Script {
	return func(flow *Flow, board *domain.Board) error {
		bind := registry.Bind(board)
		pile := firstByLabel(board, "pile")
		table := firstByLabel(board, "table")
		if pile == nil || table == nil {
			return domain.ErrUnknownLocation
		}

		rule, err := bind.WaitShuffle(client.BankUser, pile, 0)
		if err != nil {
			return err
		}
		if _, err := flow.Wait(rule); err != nil {
			return err
		}

		for _, user := range board.Users {
			hand := HandLocation(board, user.Name)
			if hand == nil || len(pile.CardIDs) < handSize {
				continue
			}
			dealt := cardsByID(board, pile.CardIDs[:handSize])
			rule, err := bind.WaitMove(client.BankUser, dealt, []*domain.Location{pile}, []*domain.Location{hand})
			if err != nil {
				return err
			}
			if _, err := flow.Wait(rule); err != nil {
				return err
			}
		}

		for {
			played := false
			for _, user := range board.Users {
				hand := HandLocation(board, user.Name)
				if hand == nil || len(hand.CardIDs) == 0 {
					continue
				}
				played = true

				rule, err := bind.WaitPickCard(user.Name, cardsByID(board, hand.CardIDs))
				if err != nil {
					return err
				}
				agg, err := flow.Wait(rule)
				if err != nil {
					return err
				}
				picked := pickedCard(board, agg[user.Name])
				if picked == nil {
					continue
				}

				rule, err = bind.WaitMove(client.BankUser, []*domain.Card{picked}, []*domain.Location{hand}, []*domain.Location{table})
				if err != nil {
					return err
				}
				if _, err := flow.Wait(rule); err != nil {
					return err
				}
			}
			if !played {
				break
			}
		}

		names := make([]string, len(board.Users))
		for i, u := range board.Users {
			names[i] = u.Name
		}
		rule, err = bind.WaitSendMessage(strings.Join(names, ","), "gameOver", "", true)
		if err != nil {
			return err
		}
		_, err = flow.Wait(rule)
		return err
	}
}

func firstByLabel(board *domain.Board, label string) *domain.Location {
	locs := board.LocationsByLabel(label)
	if len(locs) == 0 {
		return nil
	}
	return locs[0]
}

func cardsByID(board *domain.Board, ids []int) []*domain.Card {
	out := make([]*domain.Card, 0, len(ids))
	for _, id := range ids {
		if c := board.CardByID(id); c != nil {
			out = append(out, c)
		}
	}
	return out
}

func pickedCard(board *domain.Board, results []protocol.Result) *domain.Card {
	for _, res := range results {
		if len(res.CardIDs) > 0 {
			return board.CardByID(res.CardIDs[0])
		}
	}
	return nil
}
