package variables

import (
	pp "tauflow/internal/preprocessing"
	tf "tauflow/internal/transform"
)

const (
	TracksLen   = 10
	ClustersLen = 6
)

var pooled = pp.MeanStd{PerSlot: false}

func trackVars() []Spec {
	return []Spec{
		Derived("TauTracks/pt_log", tf.Log10("TauTracks/pt", 0), pooled),
		Derived("TauTracks/pt_jetseed_log", tf.BroadcastLog10("TauTracks/pt", "TauJets/ptJetSeed"), pooled),
		Derived("TauTracks/d0_abs_log", tf.AbsLog10("TauTracks/d0", 1e-6), pooled),
		Derived("TauTracks/z0sinThetaTJVA_abs_log", tf.AbsLog10("TauTracks/z0sinThetaTJVA", 1e-6), pooled),
		Direct("TauTracks/dEta", pp.Constant{Offset: 0, Scale: 0.4}),
		Direct("TauTracks/dPhi", pp.Constant{Offset: 0, Scale: 0.4}),
		Direct("TauTracks/nInnermostPixelHits", pp.MinMax{}),
		Direct("TauTracks/nPixelHits", pp.MinMax{}),
		Direct("TauTracks/nSCTHits", pp.MinMax{}),
	}
}

func clusterVars() []Spec {
	return []Spec{
		Derived("TauClusters/et_log", tf.Log10("TauClusters/et", 0), pooled),
		Derived("TauClusters/pt_jetseed_log", tf.BroadcastLog10("TauClusters/et", "TauJets/ptJetSeed"), pooled),
		Direct("TauClusters/dEta", pp.Constant{Offset: 0, Scale: 0.4}),
		Direct("TauClusters/dPhi", pp.Constant{Offset: 0, Scale: 0.4}),
		Derived("TauClusters/SECOND_R", tf.Log10("TauClusters/SECOND_R", 0.1), pooled),
		Derived("TauClusters/SECOND_LAMBDA", tf.Log10("TauClusters/SECOND_LAMBDA", 0.1), pooled),
		Derived("TauClusters/CENTER_LAMBDA", tf.Log10("TauClusters/CENTER_LAMBDA", 1e-6), pooled),
	}
}

// shared ID variables of both prong categories
var (
	centFrac           = Derived("TauJets/centFrac", tf.Min("TauJets/centFrac", 1), pp.Flat{})
	etOverPtLeadTrk    = Derived("TauJets/etOverPtLeadTrk", tf.ClampLog10("TauJets/etOverPtLeadTrk", 0.1), pp.Flat{})
	sumPtTrkFrac       = Direct("TauJets/SumPtTrkFrac", pp.Flat{})
	empOverTrkSysP     = Derived("TauJets/EMPOverTrkSysP", tf.ClampLog10("TauJets/EMPOverTrkSysP", 1e-3), pp.Flat{})
	ptRatioEflowApprox = Derived("TauJets/ptRatioEflowApprox", tf.Min("TauJets/ptRatioEflowApprox", 4), pp.Flat{})
	mEflowApprox       = Derived("TauJets/mEflowApprox", tf.ClampLog10("TauJets/mEflowApprox", 140), pp.Flat{})
	ptIntermediateAxis = Derived("TauJets/ptIntermediateAxis", tf.ScaledClampLog10("TauJets/ptIntermediateAxis", 1000, 100), pp.Flat{})
)

func scalar1PVars() []Spec {
	return []Spec{
		centFrac,
		etOverPtLeadTrk,
		Direct("TauJets/innerTrkAvgDist", pp.Flat{}),
		Derived("TauJets/absipSigLeadTrk", tf.Min("TauJets/absipSigLeadTrk", 30), pp.Flat{}),
		sumPtTrkFrac,
		empOverTrkSysP,
		ptRatioEflowApprox,
		mEflowApprox,
		ptIntermediateAxis,
	}
}

func scalar3PVars() []Spec {
	return []Spec{
		centFrac,
		etOverPtLeadTrk,
		Direct("TauJets/dRmax", pp.Flat{}),
		Derived("TauJets/trFlightPathSig", tf.ClampLog10("TauJets/trFlightPathSig", 0.01), pp.Flat{}),
		sumPtTrkFrac,
		empOverTrkSysP,
		ptRatioEflowApprox,
		mEflowApprox,
		ptIntermediateAxis,
		Derived("TauJets/massTrkSys", tf.ClampLog10("TauJets/massTrkSys", 140), pp.Flat{}),
	}
}

// Defaults returns a registry holding the analysis groups: tracks,
// clusters, scalar_1p and scalar_3p.
func Defaults() *Registry {
	r := NewRegistry()
	r.Put(Group{Name: "tracks", Len: TracksLen, Vars: trackVars(), Presence: []string{"TauTracks/pt"}})
	r.Put(Group{Name: "clusters", Len: ClustersLen, Vars: clusterVars(), Presence: []string{"TauClusters/et"}})
	r.Put(Group{Name: "scalar_1p", Vars: scalar1PVars()})
	r.Put(Group{Name: "scalar_3p", Vars: scalar3PVars()})
	return r
}
