package main

import (
	"fmt"
	"strconv"

	"github.com/lober-org/welovedogs/core"
)

func parseTokenID(raw string) (uint32, error) {
	id, err := strconv.ParseUint(raw, 10, 32)
	if err != nil {
		return 0, fmt.Errorf("invalid token id %q", raw)
	}
	return uint32(id), nil
}

func badgeInit(args []string) error {
	param := map[string]string{"owner": args[0]}
	for i, field := range []string{"baseUri", "name", "symbol"} {
		if len(args) > i+1 {
			param[field] = args[i+1]
		}
	}
	if _, err := callRPC(core.MethodBadgeInitialize, param, true); err != nil {
		return err
	}
	fmt.Println("Badge collection initialized.")
	return nil
}

func badgeMint(args []string) error {
	key, err := loadKey(args[0])
	if err != nil {
		return err
	}
	result, err := sendSigned(key, core.MethodBadgeMint, core.BadgeMintPayload{
		To:     args[1],
		Caller: key.PubKey().Address().String(),
	})
	if err != nil {
		return err
	}
	printJSONResult(result)
	return nil
}

func badgeTransfer(args []string) error {
	key, err := loadKey(args[0])
	if err != nil {
		return err
	}
	id, err := parseTokenID(args[2])
	if err != nil {
		return err
	}
	_, err = sendSigned(key, core.MethodBadgeTransfer, core.BadgeTransferPayload{
		From:    key.PubKey().Address().String(),
		To:      args[1],
		TokenID: id,
	})
	if err != nil {
		return err
	}
	fmt.Printf("Badge %d transferred to %s.\n", id, args[1])
	return nil
}

func badgeBurn(args []string) error {
	key, err := loadKey(args[0])
	if err != nil {
		return err
	}
	id, err := parseTokenID(args[1])
	if err != nil {
		return err
	}
	_, err = sendSigned(key, core.MethodBadgeBurn, core.BadgeBurnPayload{
		From:    key.PubKey().Address().String(),
		TokenID: id,
	})
	if err != nil {
		return err
	}
	fmt.Printf("Badge %d burned.\n", id)
	return nil
}

func badgePause(args []string) error {
	return badgeToggle(args[0], core.MethodBadgePause, "Badge operations paused.")
}

func badgeUnpause(args []string) error {
	return badgeToggle(args[0], core.MethodBadgeUnpause, "Badge operations resumed.")
}

func badgeToggle(keystore, method, done string) error {
	key, err := loadKey(keystore)
	if err != nil {
		return err
	}
	if _, err := sendSigned(key, method, core.BadgeCallerPayload{Caller: key.PubKey().Address().String()}); err != nil {
		return err
	}
	fmt.Println(done)
	return nil
}

func badgeSetURI(args []string) error {
	key, err := loadKey(args[0])
	if err != nil {
		return err
	}
	id, err := parseTokenID(args[1])
	if err != nil {
		return err
	}
	_, err = sendSigned(key, core.MethodBadgeSetTokenURI, core.BadgeSetTokenURIPayload{
		TokenID: id,
		URI:     args[2],
		Caller:  key.PubKey().Address().String(),
	})
	if err != nil {
		return err
	}
	fmt.Printf("Badge %d URI updated.\n", id)
	return nil
}

func badgeURI(args []string) error {
	return badgeTokenQuery("pod_tokenUri", args[0])
}

func badgeOwner(args []string) error {
	return badgeTokenQuery("pod_ownerOf", args[0])
}

func badgeTokenQuery(method, raw string) error {
	id, err := parseTokenID(raw)
	if err != nil {
		return err
	}
	result, err := callRPC(method, map[string]uint32{"tokenId": id}, false)
	if err != nil {
		return err
	}
	printJSONResult(result)
	return nil
}

func badgeTokens(args []string) error {
	result, err := callRPC("pod_tokensOf", map[string]string{"address": args[0]}, false)
	if err != nil {
		return err
	}
	printJSONResult(result)
	return nil
}

func badgeCollectionOwner(args []string) error {
	result, err := callRPC("pod_owner", nil, false)
	if err != nil {
		return err
	}
	printJSONResult(result)
	return nil
}

func badgeTransferOwner(args []string) error {
	key, err := loadKey(args[0])
	if err != nil {
		return err
	}
	_, err = sendSigned(key, core.MethodBadgeTransferOwnership, core.BadgeTransferOwnershipPayload{
		NewOwner: args[1],
		Caller:   key.PubKey().Address().String(),
	})
	if err != nil {
		return err
	}
	fmt.Printf("Badge collection handed to %s.\n", args[1])
	return nil
}
