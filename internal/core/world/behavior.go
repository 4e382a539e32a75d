package world

// Optional capabilities of a scripted entity behavior. The grab core probes the
// value returned by Behaviors.Behavior with type assertions; a behavior that does
// not implement a capability simply receives no call.

type HandSetter interface {
	SetHand(hand Hand)
}

type NearGrabber interface {
	StartNearGrab(hand Hand)
	ContinueNearGrab(hand Hand)
}

type DistantGrabber interface {
	StartDistantGrab(hand Hand)
	ContinueDistantGrab(hand Hand)
}

type GrabReleaser interface {
	ReleaseGrab(hand Hand)
}

type Equipper interface {
	StartEquip(hand Hand)
	ContinueEquip(hand Hand)
}

type Unequipper interface {
	Unequip(hand Hand)
}

type NearTriggerer interface {
	StartNearTrigger(hand Hand)
	ContinueNearTrigger(hand Hand)
	StopNearTrigger(hand Hand)
}

type FarTriggerer interface {
	StartFarTrigger(hand Hand)
	ContinueFarTrigger(hand Hand)
	StopFarTrigger(hand Hand)
}

type Toucher interface {
	StartTouch(hand Hand)
	ContinueTouch(hand Hand)
	StopTouch(hand Hand)
}
